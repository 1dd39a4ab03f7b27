package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"notes/internal/storage/fs"
)

var ErrEnvFileExists = errors.New("env file already exists")

// WriteEnvFile creates an env file with a fresh secret and the default
// database path. An existing file is left alone unless overwrite is set.
func WriteEnvFile(path, dbPath string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s: %w", path, ErrEnvFileExists)
		} else if !os.IsNotExist(err) {
			return err
		}
	}
	secret, err := randomSecret()
	if err != nil {
		return err
	}
	if dbPath == "" {
		dbPath = "notes.db"
	}
	env := map[string]string{
		"NOTES_DB_PATH":    dbPath,
		"NOTES_SECRET_KEY": secret,
	}
	content, err := godotenv.Marshal(env)
	if err != nil {
		return err
	}
	// the temp file is created 0600, so the secret is never world readable
	return fs.WriteFileAtomic(path, []byte(content+"\n"), 0o600)
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return base64.RawStdEncoding.EncodeToString(buf), nil
}
