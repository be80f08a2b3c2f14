package assistant

import (
	"fmt"
	"strings"

	"github.com/zadiki/folio/internal/profile"
)

const instructionTemplate = `You are an AI assistant for %s, a %s.
Use this CV data to answer questions: %s.
Keep responses professional, concise, and helpful.
Answer only from this data. If asked about personal things not in the CV, kindly state you only have information regarding their professional career.`

// BuildInstruction renders the system instruction for one completion call.
// The whole profile is serialized on every call; nothing is cached between
// requests.
func BuildInstruction(store *profile.Store) (string, error) {
	data, err := store.JSON()
	if err != nil {
		return "", fmt.Errorf("serializing profile: %w", err)
	}
	p := store.Profile()
	return strings.TrimSpace(fmt.Sprintf(instructionTemplate, p.Name, p.Title, data)), nil
}
