// Package backend resolves a configured location string into a live
// afs.Backend plus the afs.Path it names, the way mutagen's pkg/url
// parses an endpoint URL into a protocol and connection parameters
// before handing off to the matching transport. This is the one place
// that imports every concrete afs backend, so afs itself stays free of
// any dependency on them.
package backend

import (
	"context"
	"net"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"github.com/foldersync/foldersync/internal/afs"
	"github.com/foldersync/foldersync/internal/afs/ftp"
	"github.com/foldersync/foldersync/internal/afs/gdrive"
	"github.com/foldersync/foldersync/internal/afs/local"
	"github.com/foldersync/foldersync/internal/afs/sftp"
)

// TokenSource supplies an OAuth2 token for a "gdrive://" location; it is
// looked up by the account name in the URI host, since a single process
// may hold sessions open against several Drive accounts at once.
type TokenSource func(account string) (oauth2.TokenSource, error)

// Resolve parses spec and connects the backend it names. A spec with no
// recognized scheme prefix ("sftp://", "ftp://", "gdrive://") is treated
// as a bare local filesystem path, per SPEC_FULL.md §4.1.a.
func Resolve(ctx context.Context, spec string, tokens TokenSource) (afs.Backend, afs.Path, error) {
	switch {
	case strings.HasPrefix(spec, "sftp://"):
		return resolveSFTP(ctx, spec)
	case strings.HasPrefix(spec, "ftp://"):
		return resolveFTP(ctx, spec)
	case strings.HasPrefix(spec, "gdrive://"):
		return resolveDrive(ctx, spec, tokens)
	default:
		return resolveLocal(spec)
	}
}

func resolveLocal(spec string) (afs.Backend, afs.Path, error) {
	device := afs.DeviceID("local")
	b := local.New(device)
	segments := splitSegments(strings.TrimPrefix(spec, "/"))
	return b, afs.Path{Device: device, Segments: prependRoot(spec, segments)}, nil
}

// prependRoot restores the leading "/" an absolute local path needs as
// its first segment, since splitSegments otherwise discards it.
func prependRoot(spec string, segments []string) []string {
	if strings.HasPrefix(spec, "/") && len(segments) > 0 {
		segments[0] = "/" + segments[0]
	}
	return segments
}

func splitSegments(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func resolveSFTP(ctx context.Context, spec string) (afs.Backend, afs.Path, error) {
	u, err := url.Parse(spec)
	if err != nil {
		return nil, afs.Path{}, err
	}
	password, _ := u.User.Password()
	device := afs.DeviceID("sftp:" + u.Host)
	b := sftp.New(device, sftp.Config{
		Address:  withDefaultPort(u.Host, "22"),
		User:     u.User.Username(),
		Password: password,
	})
	if err := b.Connect(ctx); err != nil {
		return nil, afs.Path{}, err
	}
	return b, afs.Path{Device: device, Segments: splitSegments(u.Path)}, nil
}

func resolveFTP(ctx context.Context, spec string) (afs.Backend, afs.Path, error) {
	u, err := url.Parse(spec)
	if err != nil {
		return nil, afs.Path{}, err
	}
	password, _ := u.User.Password()
	device := afs.DeviceID("ftp:" + u.Host)
	b := ftp.New(device, ftp.Config{
		Address:  withDefaultPort(u.Host, "21"),
		User:     u.User.Username(),
		Password: password,
	})
	if err := b.Connect(ctx); err != nil {
		return nil, afs.Path{}, err
	}
	return b, afs.Path{Device: device, Segments: splitSegments(u.Path)}, nil
}

func resolveDrive(ctx context.Context, spec string, tokens TokenSource) (afs.Backend, afs.Path, error) {
	u, err := url.Parse(spec)
	if err != nil {
		return nil, afs.Path{}, err
	}
	account := u.Host
	tokenSource, err := tokens(account)
	if err != nil {
		return nil, afs.Path{}, err
	}
	device := afs.DeviceID("gdrive:" + account)
	b := gdrive.New(device, gdrive.Config{TokenSource: tokenSource, RootFolderID: "root"})
	if err := b.Connect(ctx); err != nil {
		return nil, afs.Path{}, err
	}
	return b, afs.Path{Device: device, Segments: splitSegments(u.Path)}, nil
}

func withDefaultPort(host, port string) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(host, port)
}
