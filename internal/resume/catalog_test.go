package resume

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()

	assert.Equal(t, []string{
		"Professional Summary",
		"Personal Information",
		"Contact Information",
		"Languages",
		"Working Experience",
		"Education",
		"Certificates",
		"Skills and Competencies",
		"Software and Technologies",
		"Hobbies",
		"Additional Information",
	}, c.Sections())

	we, ok := c.Section("Working Experience")
	require.True(t, ok)
	assert.Equal(t, KindList, we.Kind())
	assert.Equal(t,
		`{"Title":"","Location":"","Description":"","Bullet Points":["",""],"Start Date":"","End Date":"","Company":"","Website":"","Additional Information":""}`,
		mustJSON(t, we.Entry()))
}

func TestLoadCatalogValidation(t *testing.T) {
	tests := map[string]string{
		"empty":         ``,
		"string":        "Hobbies: \"\"\n",
		"filled leaf":   "Personal Information:\n  Firstname: Ada\n",
		"empty list":    "Hobbies: []\n",
		"mixed entries": "Hobbies:\n  - \"\"\n  - Name: \"\"\n",
		"not a mapping": "- a\n- b\n",
	}

	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadCatalog([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestLoadCatalogFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("Awards:\n  - Title: \"\"\n    Year: ~\n"), 0o644))

	c, err := LoadCatalogFile(path)
	require.NoError(t, err)

	doc, err := Append(mustDecode(t, `{"Awards":[]}`), MustParsePath("Awards"), c)
	require.NoError(t, err)
	assert.Equal(t, `{"Awards":[{"Title":"","Year":""}]}`, mustJSON(t, doc))

	_, err = LoadCatalogFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestCatalogCheck(t *testing.T) {
	doc := mustDecode(t, `{"Languages":{"English":"Native"},"Hobbies":["Chess"],"Other":"x"}`)

	problems := DefaultCatalog().Check(doc)
	assert.Equal(t, []string{`section "Languages" is a record, catalog expects a list`}, problems)
}
