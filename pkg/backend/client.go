// Package backend implements the Chunk Backend Client: file-level put,
// get, and delete operations against a single SFTP storage endpoint. Every
// call opens a fresh authenticated session and tears it down on every exit
// path, matching the contract in spec.md §4.1.
package backend

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/vaultmesh/vaultmesh/pkg/vmerr"
)

// Credentials authenticate the SFTP session opened for every operation.
type Credentials struct {
	User     string
	Password string
	Port     int
}

// Client is the Chunk Backend Client. A single Client is reused across
// many endpoints; it carries only the shared credentials, not a live
// connection, since each operation opens and tears down its own session.
type Client struct {
	creds      Credentials
	dialTimeout time.Duration
}

// New creates a Client authenticating with creds. dialTimeout bounds the
// TCP connect and SSH handshake for every session.
func New(creds Credentials, dialTimeout time.Duration) *Client {
	if dialTimeout <= 0 {
		dialTimeout = 10 * time.Second
	}
	return &Client{creds: creds, dialTimeout: dialTimeout}
}

// RemotePath returns the storage path convention for a chunk:
// {storage_root}/{file_id}/chunk_{index}.enc
func RemotePath(storageRoot, fileID string, index int) string {
	return path.Join(storageRoot, fileID, fmt.Sprintf("chunk_%d.enc", index))
}

func (c *Client) dial(endpoint string) (*ssh.Client, *sftp.Client, error) {
	addr := endpoint
	if c.creds.Port > 0 {
		addr = fmt.Sprintf("%s:%d", endpoint, c.creds.Port)
	}

	config := &ssh.ClientConfig{
		User:            c.creds.User,
		Auth:            []ssh.AuthMethod{ssh.Password(c.creds.Password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // backends are trusted cluster-internal endpoints
		Timeout:         c.dialTimeout,
	}

	sshConn, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return nil, nil, vmerr.Wrap(vmerr.KindTransport, "backend.dial", "ssh connect to "+endpoint, err)
	}

	sftpClient, err := sftp.NewClient(sshConn)
	if err != nil {
		sshConn.Close()
		return nil, nil, vmerr.Wrap(vmerr.KindTransport, "backend.dial", "sftp session to "+endpoint, err)
	}

	return sshConn, sftpClient, nil
}

// Put writes data to remotePath on endpoint, creating the parent directory
// if it does not already exist. The session is always torn down before
// Put returns, success or failure.
func (c *Client) Put(endpoint, remotePath string, data []byte) error {
	sshConn, sftpClient, err := c.dial(endpoint)
	if err != nil {
		return err
	}
	defer sshConn.Close()
	defer sftpClient.Close()

	dir := path.Dir(remotePath)
	if err := sftpClient.MkdirAll(dir); err != nil {
		return vmerr.Wrap(vmerr.KindTransport, "backend.Put", "create parent directory "+dir, err)
	}

	f, err := sftpClient.Create(remotePath)
	if err != nil {
		return vmerr.Wrap(vmerr.KindTransport, "backend.Put", "create remote file "+remotePath, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, bytes.NewReader(data)); err != nil {
		return vmerr.Wrap(vmerr.KindTransport, "backend.Put", "write remote file "+remotePath, err)
	}

	return nil
}

// Get reads the full contents of remotePath from endpoint. A missing file
// surfaces as vmerr.KindNotFound.
func (c *Client) Get(endpoint, remotePath string) ([]byte, error) {
	sshConn, sftpClient, err := c.dial(endpoint)
	if err != nil {
		return nil, err
	}
	defer sshConn.Close()
	defer sftpClient.Close()

	f, err := sftpClient.Open(remotePath)
	if err != nil {
		if sftpErrIsNotExist(err) {
			return nil, vmerr.Wrap(vmerr.KindNotFound, "backend.Get", "remote file not found: "+remotePath, err)
		}
		return nil, vmerr.Wrap(vmerr.KindTransport, "backend.Get", "open remote file "+remotePath, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, f); err != nil {
		return nil, vmerr.Wrap(vmerr.KindTransport, "backend.Get", "read remote file "+remotePath, err)
	}

	return buf.Bytes(), nil
}

// Delete removes remotePath from endpoint. A missing file surfaces as
// vmerr.KindNotFound.
func (c *Client) Delete(endpoint, remotePath string) error {
	sshConn, sftpClient, err := c.dial(endpoint)
	if err != nil {
		return err
	}
	defer sshConn.Close()
	defer sftpClient.Close()

	if err := sftpClient.Remove(remotePath); err != nil {
		if sftpErrIsNotExist(err) {
			return vmerr.Wrap(vmerr.KindNotFound, "backend.Delete", "remote file not found: "+remotePath, err)
		}
		return vmerr.Wrap(vmerr.KindTransport, "backend.Delete", "remove remote file "+remotePath, err)
	}

	return nil
}

// sftpErrIsNotExist reports whether err represents a missing remote path.
// github.com/pkg/sftp wraps SSH_FX_NO_SUCH_FILE in a *sftp.StatusError that
// also satisfies os.IsNotExist, which is the check the package documents
// callers should use.
func sftpErrIsNotExist(err error) bool {
	return os.IsNotExist(err)
}
