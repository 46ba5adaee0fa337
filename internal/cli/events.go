package cli

import (
	"encoding/json"
	"os"
	"time"
)

// emitNDJSON writes one JSON object per line to stdout, for --json mode.
func emitNDJSON(event string, data map[string]interface{}) {
	out := map[string]interface{}{
		"ts":    time.Now().UTC().Format(time.RFC3339Nano),
		"level": "info",
		"event": event,
		"data":  data,
	}
	enc := json.NewEncoder(os.Stdout)
	_ = enc.Encode(out)
}
