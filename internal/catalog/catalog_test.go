package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediaid-gateway/internal/config"
	"mediaid-gateway/internal/models"
)

func names(records []models.DrugRecord) []string {
	out := make([]string, 0, len(records))
	for _, d := range records {
		out = append(out, d.Name)
	}
	return out
}

// backends returns every catalog implementation seeded with the built-in drugs.
func backends(t *testing.T) map[string]Catalog {
	t.Helper()
	ctx := context.Background()

	mem, err := Open(ctx, config.CatalogConfig{Driver: config.CatalogMemory})
	require.NoError(t, err)

	lite, err := Open(ctx, config.CatalogConfig{
		Driver: config.CatalogSQLite,
		DSN:    filepath.Join(t.TempDir(), "catalog.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { lite.Close() })

	return map[string]Catalog{"memory": mem, "sqlite": lite}
}

func TestSearch(t *testing.T) {
	tests := []struct {
		query string
		want  []string
	}{
		{query: "paracetamol", want: []string{"Paracetamol"}},
		{query: "  LORATADINE ", want: []string{"Loratadine"}},
		{query: "acet", want: []string{"Paracetamol", "Aspirin"}},
		{query: "ro", want: []string{"Ibuprofen", "Dextromethorphan", "Aspirin", "Loperamide"}},
		{query: "itching", want: []string{"Loratadine", "Cetirizine"}},
		{query: "fever", want: []string{"Paracetamol", "Ibuprofen", "Aspirin", "Loratadine"}},
		{query: "gerd", want: []string{"Omeprazole"}},
		{query: "unobtainium", want: []string{}},
	}

	for name, cat := range backends(t) {
		for _, tt := range tests {
			t.Run(name+"/"+tt.query, func(t *testing.T) {
				got, err := cat.Search(context.Background(), tt.query)
				require.NoError(t, err)
				require.NotNil(t, got)
				assert.Equal(t, tt.want, names(got))
			})
		}
	}
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	for name, cat := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for _, q := range []string{"", "   ", "\t\n"} {
				_, err := cat.Search(context.Background(), q)
				assert.ErrorIs(t, err, models.ErrInvalidInput)
			}
		})
	}
}

func TestLookupByKeywords(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{text: "I have a headache\nTry paracetamol", want: []string{"Paracetamol", "Ibuprofen", "Aspirin"}},
		{text: "Loratadine is a good option.", want: []string{"Loratadine"}},
		{text: "I keep sneezing", want: []string{"Loratadine", "Cetirizine"}},
		{text: "I have had diarrhea since yesterday", want: []string{"Loperamide"}},
		{text: "I have a toothache", want: []string{"Paracetamol", "Ibuprofen", "Aspirin"}},
		{text: "I feel feverish", want: []string{"Paracetamol", "Ibuprofen", "Aspirin"}},
		{text: "my back is hurting", want: []string{"Paracetamol", "Ibuprofen", "Aspirin"}},
		{text: "Hello, how are you?", want: []string{}},
		{text: "", want: []string{}},
	}

	for name, cat := range backends(t) {
		for _, tt := range tests {
			t.Run(name+"/"+tt.text, func(t *testing.T) {
				got, err := cat.LookupByKeywords(context.Background(), tt.text)
				require.NoError(t, err)
				require.NotNil(t, got)
				assert.Equal(t, tt.want, names(got))
			})
		}
	}
}

func TestListAndGet(t *testing.T) {
	ctx := context.Background()
	for name, cat := range backends(t) {
		t.Run(name, func(t *testing.T) {
			all, err := cat.List(ctx, "")
			require.NoError(t, err)
			assert.Equal(t, []string{"Paracetamol", "Ibuprofen", "Aspirin", "Loratadine", "Omeprazole", "Dextromethorphan", "Loperamide", "Cetirizine"}, names(all))

			fever, err := cat.List(ctx, "FEVER")
			require.NoError(t, err)
			assert.Equal(t, []string{"Paracetamol", "Ibuprofen", "Aspirin"}, names(fever))

			none, err := cat.List(ctx, "broken leg")
			require.NoError(t, err)
			assert.Empty(t, none)

			drug, err := cat.Get(ctx, DrugID("Omeprazole"))
			require.NoError(t, err)
			assert.Equal(t, "Omeprazole", drug.Name)
			assert.Equal(t, "20mg once daily before meals", drug.Dosage)
			assert.Equal(t, []string{"Heartburn", "Acid reflux", "Stomach ulcers", "GERD"}, drug.Uses)
			assert.Equal(t, []string{"Headache", "Nausea", "Diarrhea"}, drug.SideEffects)

			_, err = cat.Get(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestBackendsAgree(t *testing.T) {
	ctx := context.Background()
	cats := backends(t)
	mem, lite := cats["memory"], cats["sqlite"]

	for _, q := range []string{"pain", "a", "allerg", "cough", "stroke"} {
		want, err := mem.Search(ctx, q)
		require.NoError(t, err)
		got, err := lite.Search(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, want, got, q)
	}
}

func TestSQLiteDoesNotReseed(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "catalog.db")

	first, err := NewSQLite(ctx, dsn, []models.DrugRecord{{ID: "a", Name: "Alpha"}})
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := NewSQLite(ctx, dsn, []models.DrugRecord{{ID: "b", Name: "Beta"}})
	require.NoError(t, err)
	t.Cleanup(func() { second.Close() })

	all, err := second.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha"}, names(all))
	require.NoError(t, second.Ping(ctx))
}

func TestLoadSeed(t *testing.T) {
	builtIn, err := LoadSeed("")
	require.NoError(t, err)
	require.Len(t, builtIn, 8)
	assert.Equal(t, DrugID("Paracetamol"), builtIn[0].ID)
	assert.Equal(t, "Acetaminophen", builtIn[0].GenericName)

	path := filepath.Join(t.TempDir(), "drugs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("drugs:\n  - id: zinc-1\n    name: Zinc\n"), 0o600))
	custom, err := LoadSeed(path)
	require.NoError(t, err)
	require.Len(t, custom, 1)
	assert.Equal(t, "zinc-1", custom[0].ID)
	assert.NotNil(t, custom[0].Uses)

	_, err = parseSeed([]byte("drugs:\n  - name: A\n  - name: a\n"))
	assert.ErrorContains(t, err, "already used")

	_, err = parseSeed([]byte("drugs: []\n"))
	assert.Error(t, err)

	_, err = LoadSeed(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDetectSymptoms(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{text: "My HEADACHES are back", want: []string{"headache", "pain"}},
		{text: "I'm burning up and my back hurts", want: []string{"fever", "pain"}},
		{text: "coughing all night, muscles stiff", want: []string{"cough", "muscle pain"}},
		{text: "I have a stomachache", want: []string{"pain", "stomach"}},
		{text: "I feel feverish", want: []string{"fever"}},
		{text: "my back is hurting", want: []string{"pain"}},
		{text: "I have a toothache", want: []string{"pain"}},
		{text: "Hello, how are you?", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectSymptoms(tt.text))
		})
	}
}

func TestContainsTerm(t *testing.T) {
	assert.True(t, containsTerm("try paracetamol.", "paracetamol"))
	assert.True(t, containsTerm("two headaches", "headache"))
	assert.True(t, containsTerm("runny noses", "runny nose"))
	assert.False(t, containsTerm("photos", "hot"))
	assert.False(t, containsTerm("shot", "hot"))
	assert.False(t, containsTerm("anything", ""))
}

func TestNewMemoryValidates(t *testing.T) {
	_, err := NewMemory(nil)
	assert.Error(t, err)

	_, err = NewMemory([]models.DrugRecord{{ID: "x", Name: "A"}, {ID: "x", Name: "B"}})
	assert.Error(t, err)
}
