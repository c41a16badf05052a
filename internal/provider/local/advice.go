package local

// Canned advice per detected symptom. Symptoms without an entry fall back to generalAdvice.
var symptomAdvice = map[string]string{
	"fever":     "For fever: Rest, drink plenty of fluids, use fever reducers like Paracetamol. See a doctor if fever exceeds 103°F (39.4°C) or persists for more than 3 days.",
	"headache":  "For headaches: Rest in a quiet, dark room, apply cold or warm compress, stay hydrated. Try Paracetamol or Ibuprofen. See a doctor if severe or recurring.",
	"cough":     "For cough: Stay hydrated, use honey, avoid irritants. Use cough suppressants for dry cough. See a doctor if blood in cough or persists over 2 weeks.",
	"diarrhea":  "For diarrhea: Stay hydrated with ORS, eat bland foods (BRAT diet), avoid dairy and fatty foods. Use Loperamide if needed. See a doctor if severe or bloody.",
	"allergies": "For allergies: Avoid triggers, use antihistamines like Loratadine or Cetirizine. For severe reactions, seek immediate medical attention.",
	"stomach":   "For stomach issues: Eat bland foods, avoid spicy foods, stay hydrated. Use antacids for heartburn. See a doctor if severe pain or blood in stool.",
	"pain":      "For pain: Rest, apply ice/heat, use pain relievers like Paracetamol or Ibuprofen. See a doctor if severe or doesn't improve with rest.",
}

const (
	generalAdvice  = "Always consult a healthcare provider for persistent symptoms, severe conditions, or if you're unsure about medication use."
	greetingReply  = "Hello! I'm MediAid, your local health assistant. I can help you with information about medications and basic health advice. What symptoms are you experiencing?"
	drugQueryReply = "I can help you with information about medications! Please tell me the name of the drug you're asking about, or describe your symptoms and I'll suggest appropriate medications."
	fallbackReply  = "I can help you with health advice and medication information. Please describe your symptoms or ask about a specific medication."
	foundFormat    = "I found %d medication(s) that might help with your symptoms. Check the suggestions below for more details."
)

var (
	greetings   = []string{"hello", "hi", "hey", "good morning", "good evening"}
	drugQueries = []string{"what is", "tell me about", "medicine", "drug"}
)
