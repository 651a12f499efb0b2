package instance

import "github.com/talentbridge/talentbridge-backend/pkg/env"

const fallbackID = "local"

// GetID identifies this process in logs and lock ownership. The explicit
// variable wins over the platform-provided dyno name.
func GetID() string {
	return env.Get("TALENTBRIDGE_INSTANCE_ID", env.Get("DYNO", fallbackID))
}
