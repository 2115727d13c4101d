package catalog

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ServerPlayer is a placeholder entry on the shared leaderboard.
type ServerPlayer struct {
	Name     string  `toml:"name" json:"name"`
	Level    int     `toml:"level" json:"level"`
	NetWorth float64 `toml:"net_worth" json:"netWorth"`
}

// ServerCompany is a company listed by the (locally faked) server.
type ServerCompany struct {
	ID       string  `toml:"id" json:"id"`
	Name     string  `toml:"name" json:"name"`
	NetWorth float64 `toml:"net_worth" json:"netWorth"`
}

// ServerData is the placeholder multi-player listing.
type ServerData struct {
	Players   []ServerPlayer  `toml:"players" json:"players"`
	Companies []ServerCompany `toml:"companies" json:"companies"`
}

// File is the on-disk catalog format.
type File struct {
	Ores   map[string]Ore `toml:"ores"`
	Server ServerData     `toml:"server,omitempty"`
}

// LoadFile reads a TOML catalog. An empty path yields an empty file.
func LoadFile(path string) (File, error) {
	var f File
	path = strings.TrimSpace(path)
	if path == "" {
		return f, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return f, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(raw)
}

// Parse decodes TOML catalog bytes.
func Parse(raw []byte) (File, error) {
	var f File
	if err := toml.NewDecoder(bytes.NewReader(raw)).Decode(&f); err != nil {
		return f, fmt.Errorf("decode catalog: %w", err)
	}
	return f, nil
}

// Export renders ores as a paste-able TOML catalog snippet.
func Export(ores map[string]Ore) ([]byte, error) {
	out, err := toml.Marshal(File{Ores: ores})
	if err != nil {
		return nil, fmt.Errorf("encode catalog: %w", err)
	}
	return out, nil
}
