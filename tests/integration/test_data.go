package integration

import (
	"fmt"
	"time"
)

// TestIdentity generates unique test credentials using a timestamp
func TestIdentity(suffix string) (email, password string) {
	ts := time.Now().UnixNano()
	email = fmt.Sprintf("test-%d-%s@example.com", ts, suffix)
	password = "TestPassword123!"
	return
}
