// Command encrypt-key moves OPENAI_API_KEY out of .env into an encrypted key file
// and leaves BETAI_PASSPHRASE in its place.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"betai/internal/secrets"
)

func main() {
	envPath := flag.String("env", ".env", "dotenv file holding OPENAI_API_KEY")
	keyPath := flag.String("out", "api_key.enc", "encrypted key file to write")
	flag.Parse()

	vars, err := godotenv.Read(*envPath)
	if err != nil {
		log.Fatalf("read %s: %v", *envPath, err)
	}
	key := strings.TrimSpace(vars["OPENAI_API_KEY"])
	if key == "" {
		fmt.Printf("No OPENAI_API_KEY in %s. Nothing to migrate.\n", *envPath)
		return
	}

	passphrase, err := secrets.NewPassphrase()
	if err != nil {
		log.Fatalf("passphrase: %v", err)
	}
	if err := secrets.EncryptToFile(*keyPath, key, passphrase); err != nil {
		log.Fatalf("encrypt key: %v", err)
	}
	fmt.Printf("Encrypted API key saved to %s\n", *keyPath)

	delete(vars, "OPENAI_API_KEY")
	vars["BETAI_PASSPHRASE"] = passphrase
	if *keyPath != "api_key.enc" {
		vars["BETAI_KEY_FILE"] = *keyPath
	}
	if err := godotenv.Write(vars, *envPath); err != nil {
		log.Fatalf("write %s: %v", *envPath, err)
	}
	if err := os.Chmod(*envPath, 0o600); err != nil {
		log.Printf("chmod %s: %v", *envPath, err)
	}
	fmt.Printf("%s updated: OPENAI_API_KEY removed, BETAI_PASSPHRASE set.\n", *envPath)
}
