package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
)

const (
	DefaultFTPPort    = 21
	DefaultFTPTimeout = 30 * time.Second
)

var ErrNoFTPHost = errors.New("publish: ftp host missing")

// FTPConfig describes an FTP drop location of the catalog's harvesters.
type FTPConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	RemoteDir string
	Timeout   time.Duration
}

func (c *FTPConfig) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return ErrNoFTPHost
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("publish: invalid ftp port %d", c.Port)
	}
	return nil
}

func (c *FTPConfig) addr() string {
	port := c.Port
	if port == 0 {
		port = DefaultFTPPort
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

// ftpConn is the subset of *ftp.ServerConn used for uploads.
type ftpConn interface {
	Login(user, password string) error
	ChangeDir(path string) error
	MakeDir(path string) error
	Stor(path string, r io.Reader) error
	Quit() error
}

type ftpDialer func(ctx context.Context, addr string, timeout time.Duration) (ftpConn, error)

func dialFTP(ctx context.Context, addr string, timeout time.Duration) (ftpConn, error) {
	return ftp.Dial(addr, ftp.DialWithContext(ctx), ftp.DialWithTimeout(timeout))
}

// FTP uploads artifacts into RemoteDir, replacing files with the same name.
// A connection is opened per delivery and always closed before returning.
type FTP struct {
	cfg  FTPConfig
	dial ftpDialer
}

func NewFTP(cfg FTPConfig) (*FTP, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultFTPTimeout
	}
	return &FTP{cfg: cfg, dial: dialFTP}, nil
}

func (f *FTP) Name() string {
	return "ftp://" + f.cfg.addr() + "/" + strings.Trim(f.cfg.RemoteDir, "/")
}

// WithRemoteDir returns a copy of the destination targeting another directory
// on the same server.
func (f *FTP) WithRemoteDir(dir string) *FTP {
	cp := *f
	cp.cfg.RemoteDir = dir
	return &cp
}

func (f *FTP) Deliver(ctx context.Context, a *Artifact) (err error) {
	file, err := os.Open(a.Path)
	if err != nil {
		return err
	}
	defer file.Close()

	conn, err := f.dial(ctx, f.cfg.addr(), f.cfg.Timeout)
	if err != nil {
		return fmt.Errorf("ftp connect %s: %w", f.cfg.addr(), err)
	}
	defer func() {
		if qerr := conn.Quit(); qerr != nil && err == nil {
			err = fmt.Errorf("ftp quit: %w", qerr)
		}
	}()

	if err := conn.Login(f.cfg.User, f.cfg.Password); err != nil {
		return fmt.Errorf("ftp login as %s: %w", f.cfg.User, err)
	}
	if err := changeDirAll(conn, f.cfg.RemoteDir); err != nil {
		return err
	}
	if err := conn.Stor(a.RemoteName(), file); err != nil {
		return fmt.Errorf("ftp store %s: %w", a.RemoteName(), err)
	}
	return nil
}

// changeDirAll walks into dir one segment at a time, creating segments that
// do not exist yet. Relative dirs start at the login directory, absolute ones
// at the server root.
func changeDirAll(conn ftpConn, dir string) error {
	dir = strings.ReplaceAll(dir, "\\", "/")
	if strings.HasPrefix(dir, "/") {
		if err := conn.ChangeDir("/"); err != nil {
			return fmt.Errorf("ftp cd /: %w", err)
		}
	}
	dir = path.Clean("/" + dir)
	if dir == "/" {
		return nil
	}
	for _, seg := range strings.Split(strings.TrimPrefix(dir, "/"), "/") {
		if err := conn.ChangeDir(seg); err == nil {
			continue
		}
		if err := conn.MakeDir(seg); err != nil {
			return fmt.Errorf("ftp mkdir %s: %w", seg, err)
		}
		if err := conn.ChangeDir(seg); err != nil {
			return fmt.Errorf("ftp cd %s: %w", seg, err)
		}
	}
	return nil
}
