// Package manifest reads the player list shared by the crop and download commands.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrNotFound is returned when the player list file does not exist.
var ErrNotFound = errors.New("player list file not found")

// ID is a player identifier that may be encoded as a JSON number or string.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode player id: %w", err)
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode player id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Player is one record of the player list. Only the fields needed by a
// given command have to be present.
type Player struct {
	PlayerName  string `json:"player_name"`
	Filename    string `json:"filename"`
	PlayerID    ID     `json:"player_id"`
	WikimediaID string `json:"wikimedia_id"`
	Country     string `json:"country"`
}

// Load reads a JSON array of players. Names are normalized to NFC so that
// log output and comparisons do not depend on how the list was produced.
func Load(path string) ([]Player, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("could not read player list: %w", err)
	}
	return Parse(data)
}

// Parse decodes a player list from raw JSON.
func Parse(data []byte) ([]Player, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, errors.New("expected JSON file to contain a list of players")
	}

	var players []Player
	if err := json.Unmarshal(trimmed, &players); err != nil {
		return nil, fmt.Errorf("could not parse player list: %w", err)
	}

	for i := range players {
		players[i].PlayerName = norm.NFC.String(strings.TrimSpace(players[i].PlayerName))
		players[i].Filename = strings.TrimSpace(players[i].Filename)
		players[i].WikimediaID = strings.TrimSpace(players[i].WikimediaID)
		players[i].Country = strings.TrimSpace(players[i].Country)
	}

	return players, nil
}

// MissingFields returns the names of the required JSON fields that are empty.
func (p Player) MissingFields(fields ...string) []string {
	var missing []string
	for _, f := range fields {
		var v string
		switch f {
		case "player_name":
			v = p.PlayerName
		case "filename":
			v = p.Filename
		case "player_id":
			v = string(p.PlayerID)
		case "wikimedia_id":
			v = p.WikimediaID
		case "country":
			v = p.Country
		}
		if v == "" {
			missing = append(missing, f)
		}
	}
	return missing
}
