// Copyright (c) 2026 Keymaster Team
// Passmaster - terminal credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

package i18n

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestInitAndAvailableLocales(t *testing.T) {
	Init("en")
	assert.Equal(t, "en", GetLang())

	av := GetAvailableLocales()
	assert.Equal(t, "English", av["en"])
	assert.Equal(t, "Deutsch", av["de"])
	assert.Equal(t, []string{"de", "en"}, LocaleTags())
}

func TestT_BasicAndFormatting(t *testing.T) {
	Init("en")
	defer Init("en")

	assert.Equal(t, "Vault locked.", T("session.locked"))
	assert.Equal(t, "Added credential for GitHub.", T("cli.add.success", "GitHub"))
	assert.Equal(t, "no.such.key", T("no.such.key"))

	SetLang("de")
	assert.Equal(t, "de", GetLang())
	assert.Equal(t, "Tresor gesperrt.", T("session.locked"))
}

func TestUnknownLanguageFallsBackToEnglish(t *testing.T) {
	Init("xx")
	defer Init("en")
	assert.Equal(t, "Vault locked.", T("session.locked"))
}

func loadCatalogue(t *testing.T, name string) map[string]string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("locales", name))
	require.NoError(t, err)
	var m map[string]string
	require.NoError(t, yaml.Unmarshal(data, &m))
	return m
}

// Every catalogue must translate exactly the English keys.
func TestCataloguesHaveSameKeys(t *testing.T) {
	en := loadCatalogue(t, "active.en.yaml")
	entries, err := os.ReadDir("locales")
	require.NoError(t, err)
	for _, e := range entries {
		other := loadCatalogue(t, e.Name())
		var missing, extra []string
		for k := range en {
			if _, ok := other[k]; !ok {
				missing = append(missing, k)
			}
		}
		for k := range other {
			if _, ok := en[k]; !ok {
				extra = append(extra, k)
			}
		}
		sort.Strings(missing)
		sort.Strings(extra)
		assert.Empty(t, missing, "%s is missing keys", e.Name())
		assert.Empty(t, extra, "%s has extra keys", e.Name())
	}
}
