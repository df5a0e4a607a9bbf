// Package callconfig merges job and room metadata into the effective
// configuration of one call.
package callconfig

import (
	"encoding/json"
	"maps"
	"strconv"
	"strings"

	"github.com/livekit/protocol/logger"
)

// Recognized configuration keys.
const (
	KeyPhoneNumber   = "phone_number"
	KeyModelProvider = "model_provider"
	KeyVoiceID       = "voice_id"
	KeyUserPrompt    = "user_prompt"
	KeyTTSModel      = "tts_model"
	KeyTTSLanguage   = "tts_language"
)

// CallConfiguration is the merged, read-only configuration of a call.
type CallConfiguration struct {
	values map[string]any
}

// Resolve merges job metadata (set at dispatch) with room metadata (set later,
// e.g. by a dashboard). Malformed metadata counts as empty. Room values win on
// key collision, except that phone_number is only taken from the room when it
// is present and non-empty.
func Resolve(jobMetadata, roomMetadata string, log logger.Logger) CallConfiguration {
	if log == nil {
		log = logger.GetLogger()
	}

	values := map[string]any{}
	job, err := parse(jobMetadata)
	if err != nil {
		log.Debugw("ignoring job metadata", "error", err)
	}
	maps.Copy(values, job)
	phone := stringValue(job[KeyPhoneNumber])

	room, err := parse(roomMetadata)
	if err != nil {
		log.Warnw("no valid JSON metadata found in room", err)
	}
	if p := stringValue(room[KeyPhoneNumber]); p != "" {
		phone = p
	}
	maps.Copy(values, room)

	if phone != "" {
		values[KeyPhoneNumber] = phone
	} else {
		delete(values, KeyPhoneNumber)
	}
	return CallConfiguration{values: values}
}

func parse(metadata string) (map[string]any, error) {
	if strings.TrimSpace(metadata) == "" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(metadata), &m); err != nil {
		return nil, err
	}
	return m, nil
}

// stringValue renders scalar JSON values as strings. Phone numbers sometimes
// arrive as JSON numbers.
func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// String returns the value of key rendered as a string, or "" when absent.
func (c CallConfiguration) String(key string) string {
	return stringValue(c.values[key])
}

func (c CallConfiguration) PhoneNumber() string { return c.String(KeyPhoneNumber) }
func (c CallConfiguration) ModelProvider() string { return c.String(KeyModelProvider) }
func (c CallConfiguration) VoiceID() string { return c.String(KeyVoiceID) }
func (c CallConfiguration) UserPrompt() string { return c.String(KeyUserPrompt) }
func (c CallConfiguration) TTSModel() string { return c.String(KeyTTSModel) }
func (c CallConfiguration) TTSLanguage() string { return c.String(KeyTTSLanguage) }

// Values returns a copy of the merged mapping.
func (c CallConfiguration) Values() map[string]any {
	return maps.Clone(c.values)
}

// Empty reports whether no key was resolved.
func (c CallConfiguration) Empty() bool { return len(c.values) == 0 }
