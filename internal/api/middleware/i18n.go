package middleware

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

// I18nConfig definiert die Konfiguration für die i18n-Middleware
type I18nConfig struct {
	DefaultLanguage string
	LocalesDir      string
}

// Translator hält die geladenen Übersetzungen
type Translator struct {
	bundle       *i18n.Bundle
	translations map[string]map[string]interface{}
}

// NewTranslator erstellt einen neuen Übersetzer aus den JSON-Dateien
// im Locales-Verzeichnis (z.B. "de.json", "en.json").
func NewTranslator(config I18nConfig) (*Translator, error) {
	if config.DefaultLanguage == "" {
		config.DefaultLanguage = "de"
	}
	if config.LocalesDir == "" {
		config.LocalesDir = "./web/locales"
	}

	bundle := i18n.NewBundle(language.MustParse(config.DefaultLanguage))
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	t := &Translator{
		bundle:       bundle,
		translations: make(map[string]map[string]interface{}),
	}

	localeFiles, err := os.ReadDir(config.LocalesDir)
	if err != nil {
		return nil, err
	}

	for _, file := range localeFiles {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}
		// Sprachcode aus dem Dateinamen extrahieren (z.B. "de.json" -> "de")
		langCode := strings.TrimSuffix(file.Name(), filepath.Ext(file.Name()))

		filePath := filepath.Join(config.LocalesDir, file.Name())
		if _, err := bundle.LoadMessageFile(filePath); err != nil {
			return nil, err
		}

		// Vollständige Übersetzungsdatei auch als Map laden für direkten Zugriff
		jsonData, err := os.ReadFile(filePath)
		if err != nil {
			return nil, err
		}
		var translations map[string]interface{}
		if err := json.Unmarshal(jsonData, &translations); err != nil {
			return nil, err
		}
		t.translations[langCode] = flattenMap(translations, "")
	}

	return t, nil
}

// Lookup liefert die Übersetzung für einen Schlüssel in der angegebenen
// Sprache, mit Fallback auf die Fallback-Sprache und zuletzt den Schlüssel selbst.
func (t *Translator) Lookup(lang, fallback, key string) string {
	if m := t.translations[lang]; m != nil {
		if val, ok := m[key].(string); ok {
			return val
		}
	}
	if m := t.translations[fallback]; m != nil {
		if val, ok := m[key].(string); ok {
			return val
		}
	}
	return key
}

// I18n erstellt eine Middleware für die Internationalisierung
func I18n(config I18nConfig) gin.HandlerFunc {
	translator, err := NewTranslator(config)
	if err != nil {
		// Im Fehlerfall eine Middleware zurückgeben, die nichts tut
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		// Sprache aus der Session oder dem Query-Parameter abrufen
		session := sessions.Default(c)
		lang := c.Query("lang")

		// Wenn ein Sprachparameter in der Anfrage vorliegt, diesen in der Session speichern
		if lang == "de" || lang == "en" {
			session.Set("language", lang)
			session.Save()
		} else if sessionLang := session.Get("language"); sessionLang != nil {
			lang = sessionLang.(string)
		}

		// Fallback auf die Standardsprache, wenn keine gültige Sprache gefunden wurde
		if lang != "de" && lang != "en" {
			lang = config.DefaultLanguage
		}

		c.Set("language", lang)
		c.Set("translator", translator)

		// Template-Funktion für Übersetzungen bereitstellen
		c.Set("t", func(key string, args ...interface{}) string {
			return translator.Lookup(lang, config.DefaultLanguage, key)
		})

		c.Next()
	}
}

// Flache Map erstellen für einfacheren Zugriff (z.B. "app.title" statt app["title"])
func flattenMap(input map[string]interface{}, prefix string) map[string]interface{} {
	result := make(map[string]interface{})

	for k, v := range input {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}

		switch child := v.(type) {
		case map[string]interface{}:
			for childKey, childValue := range flattenMap(child, key) {
				result[childKey] = childValue
			}
		default:
			result[key] = v
		}
	}

	return result
}
