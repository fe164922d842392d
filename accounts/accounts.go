// Package accounts loads a small JSON directory of named outbound SMTP
// credentials, the configuration cmd/sendmail reads to pick a server and
// authenticate against it without hardcoding either in the binary.
package accounts

import (
	"encoding/json"
	"fmt"
	"os"
)

// Account is everything Session.Auth and transport.Dial need to reach and
// authenticate against one outbound SMTP server.
type Account struct {
	Name     string `json:"name"`
	From     string `json:"from"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
}

func (a Account) Addr() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// Directory is a named set of Accounts, keyed by Account.Name.
type Directory struct {
	Accounts map[string]Account `json:"accounts"`
}

// Exists reports whether name is present in the directory.
func (d *Directory) Exists(name string) bool {
	_, found := d.Accounts[name]
	return found
}

// Get looks up an account by name.
func (d *Directory) Get(name string) (Account, error) {
	if a, found := d.Accounts[name]; found {
		return a, nil
	}
	return Account{}, fmt.Errorf("accounts: no account named %q", name)
}

// Add inserts account into the directory, failing if its name is taken.
func (d *Directory) Add(account Account) error {
	if d.Accounts == nil {
		d.Accounts = make(map[string]Account)
	}
	if d.Exists(account.Name) {
		return fmt.Errorf("accounts: account %q already exists", account.Name)
	}
	d.Accounts[account.Name] = account
	return nil
}

// Save writes the directory to file as indented JSON.
func (d *Directory) Save(file string) error {
	output, err := json.MarshalIndent(d, "", "\t")
	if err != nil {
		return err
	}
	return os.WriteFile(file, output, 0600)
}

// Load reads a Directory from a JSON file.
func Load(file string) (*Directory, error) {
	var d Directory
	if err := decodeFile(file, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// decodeFile is a small generic JSON file reader shared by anything in this
// package that needs to load a struct from disk.
func decodeFile(fileName string, out interface{}) error {
	file, err := os.Open(fileName)
	if err != nil {
		return fmt.Errorf("accounts: could not open %s: %w", fileName, err)
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(out); err != nil {
		return fmt.Errorf("accounts: could not parse %s: %w", fileName, err)
	}
	return nil
}
