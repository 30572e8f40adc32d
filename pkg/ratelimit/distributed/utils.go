package distributed

import (
	"fmt"
	"os"

	"github.com/google/uuid"
)

// generateInstanceID creates a unique identifier for this application instance.
func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d-%s", hostname, os.Getpid(), uuid.NewString()[:8])
}

// newToken returns the value stored in Redis by one acquisition. It names
// the instance for debugging and is unique per acquisition, so a holder
// can only release its own hold.
func newToken(instanceID string) string {
	return instanceID + ":" + uuid.NewString()
}

// gateKey returns the Redis key holding the gate for prefix.
func gateKey(kind Kind, prefix string) string {
	return prefix + ":" + kind.String()
}
