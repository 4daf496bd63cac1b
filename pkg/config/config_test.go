package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scan-fill/pkg/apperr"
	"scan-fill/pkg/services/merge"
)

func missingEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.env")
}

// clearEnv unsets keys for the duration of the test.
func clearEnv(t *testing.T, keys ...string) {
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t, "PORT", "OCR_ENGINE", "OCR_LANGUAGE", "OCR_ENHANCE", "ON_UNMATCHED", "MAX_UPLOAD_BYTES", "SESSION_TTL")

	cfg, err := Load(missingEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "tesseract", cfg.OCREngine)
	assert.Equal(t, "eng", cfg.OCRLanguage)
	assert.True(t, cfg.OCREnhance)
	assert.Equal(t, merge.Append, cfg.OnUnmatched)
	assert.Equal(t, int64(32<<20), cfg.MaxUploadBytes)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("OCR_ENGINE", "AZURE")
	t.Setenv("ON_UNMATCHED", "ignore")
	t.Setenv("OCR_ENHANCE", "false")
	t.Setenv("PDF_DPI", "not-a-number")
	t.Setenv("CONVERT_TIMEOUT", "30s")

	cfg, err := Load(missingEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "azure", cfg.OCREngine)
	assert.Equal(t, merge.Ignore, cfg.OnUnmatched)
	assert.False(t, cfg.OCREnhance)
	assert.Equal(t, 300, cfg.PDFDPI)
	assert.Equal(t, 30*time.Second, cfg.ConvertTimeout)
	assert.Equal(t, "azure", cfg.OCROptions().Engine)
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t, "OCR_LANGUAGE")
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SCANFILL_TEST_PORT_UNUSED=1\nOCR_LANGUAGE=deu+eng\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("SCANFILL_TEST_PORT_UNUSED") })

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "deu+eng", cfg.OCRLanguage)
}

func TestLoadRejectsBadPolicy(t *testing.T) {
	t.Setenv("ON_UNMATCHED", "drop")

	_, err := Load(missingEnvFile(t))

	require.Error(t, err)
	assert.Equal(t, apperr.CodeConfigInvalid, apperr.Code(err))
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			OCREngine:      "tesseract",
			OnUnmatched:    merge.Append,
			MaxUploadBytes: 1,
			PDFDPI:         1,
			SessionTTL:     time.Minute,
		}
	}
	require.NoError(t, base().Validate())

	c := base()
	c.OCREngine = "abbyy"
	assert.Error(t, c.Validate())

	c = base()
	c.MaxUploadBytes = 0
	assert.Error(t, c.Validate())

	c = base()
	c.SessionTTL = 0
	assert.Error(t, c.Validate())
}
