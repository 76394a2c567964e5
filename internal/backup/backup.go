// Package backup captures router running configurations over SSH and
// archives them as timestamped files on local disk.
package backup

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/routerops/routerops/internal/logging"
)

// Service pulls the running configuration from one device.
type Service struct {
	host      string
	username  string
	password  string
	timeout   time.Duration
	configDir string
	log       *logging.Logger
}

// NewService builds a backup service for host. configDir is created on
// demand when the first archive is written.
func NewService(host, username, password string, timeout time.Duration, configDir string, log *logging.Logger) *Service {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Service{
		host:      host,
		username:  username,
		password:  password,
		timeout:   timeout,
		configDir: configDir,
		log:       log,
	}
}

// GetRunningConfig connects over SSH, runs show running-config, and writes
// the output to configDir. It returns the path of the archive file.
func (s *Service) GetRunningConfig(ctx context.Context) (string, error) {
	output, err := s.fetchConfig(ctx)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.configDir, 0o755); err != nil {
		return "", fmt.Errorf("create config dir %s: %w", s.configDir, err)
	}

	filename := fmt.Sprintf("running_config_%s_%s.txt", s.host, time.Now().Format("20060102_150405"))
	path := filepath.Join(s.configDir, filename)
	if err := os.WriteFile(path, output, 0o644); err != nil {
		return "", fmt.Errorf("write config archive %s: %w", path, err)
	}

	s.log.WithContext(ctx).WithRouter(s.host).
		WithField("config_path", path).
		WithField("bytes", len(output)).
		Info("Running configuration archived")
	return path, nil
}

func (s *Service) fetchConfig(ctx context.Context) ([]byte, error) {
	cfg := &ssh.ClientConfig{
		User: s.username,
		Auth: []ssh.AuthMethod{
			ssh.Password(s.password),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range questions {
					answers[i] = s.password
				}
				return answers, nil
			}),
		},
		// lab devices use throwaway host keys
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         s.timeout,
	}

	addr := net.JoinHostPort(s.host, "22")
	dialer := net.Dialer{Timeout: s.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s: %w", s.host, err)
	}
	client := ssh.NewClient(sshConn, chans, reqs)
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("open ssh session on %s: %w", s.host, err)
	}
	defer session.Close()

	output, err := session.Output("show running-config")
	if err != nil {
		return nil, fmt.Errorf("run show running-config on %s: %w", s.host, err)
	}
	return output, nil
}
