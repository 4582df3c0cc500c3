package health

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/ssh"
)

// SFTPChecker probes a storage backend's reachability by completing an SSH
// handshake and authenticating, without performing any file operation.
// This is the liveness check the Node Registry's Health Prober runs
// against every registered backend endpoint.
type SFTPChecker struct {
	// Address is the backend's host:port.
	Address string

	// User and Password authenticate the probe session.
	User     string
	Password string

	// Timeout bounds the dial and handshake.
	Timeout time.Duration
}

// NewSFTPChecker creates an SFTP-dial health checker for address.
func NewSFTPChecker(address, user, password string) *SFTPChecker {
	return &SFTPChecker{
		Address:  address,
		User:     user,
		Password: password,
		Timeout:  5 * time.Second,
	}
}

// Check performs the SFTP health check.
func (s *SFTPChecker) Check(ctx context.Context) Result {
	start := time.Now()

	config := &ssh.ClientConfig{
		User:            s.User,
		Auth:            []ssh.AuthMethod{ssh.Password(s.Password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         s.Timeout,
	}

	conn, err := ssh.Dial("tcp", s.Address, config)
	if err != nil {
		return Result{
			Healthy:   false,
			Message:   fmt.Sprintf("ssh handshake to %s failed: %v", s.Address, err),
			CheckedAt: start,
			Duration:  time.Since(start),
		}
	}
	defer conn.Close()

	return Result{
		Healthy:   true,
		Message:   fmt.Sprintf("ssh handshake to %s succeeded", s.Address),
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}

// Type returns the health check type.
func (s *SFTPChecker) Type() CheckType {
	return CheckTypeSFTP
}

// WithTimeout sets the dial/handshake timeout.
func (s *SFTPChecker) WithTimeout(timeout time.Duration) *SFTPChecker {
	s.Timeout = timeout
	return s
}
