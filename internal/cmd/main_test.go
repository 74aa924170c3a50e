package cmd

import (
	"os"
	"testing"

	"github.com/99designs/keyring"

	"github.com/barcodeapi/barcodeapi-cli/internal/config"
)

func TestMain(m *testing.M) {
	// Keep the developer's shell settings and files out of the tests.
	_ = os.Setenv("BARCODEAPI_OUTPUT", "text")
	_ = os.Setenv("BARCODEAPI_NO_CACHE", "1")
	_ = os.Unsetenv("BARCODEAPI_TOKEN")
	_ = os.Unsetenv("BARCODEAPI_PROFILE")
	_ = os.Unsetenv("BARCODEAPI_REDIS_URL")
	_ = os.Setenv("BARCODEAPI_SERVER_ERROR_DELAY", "0s")
	dir, err := os.MkdirTemp("", "barcodeapi-cmd-test")
	if err != nil {
		panic(err)
	}
	_ = os.Setenv("BARCODEAPI_CREDENTIALS_DIR", dir)

	cleanup := config.SetOpenKeyring(func(cfg keyring.Config) (keyring.Keyring, error) {
		return keyring.NewArrayKeyring(nil), nil
	})
	code := m.Run()
	cleanup()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}
