package daemon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// watchRuntimeDir watches the daemon's runtime directory for the
// socket file disappearing out from under the running daemon (an
// operator `rm -rf ~/.lash`), triggering self-shutdown rather than
// continuing to serve from an unlinked socket.
func (s *Server) watchRuntimeDir(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(s.cfg.SocketPath)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Name == s.cfg.SocketPath && (ev.Op&fsnotify.Remove != 0 || ev.Op&fsnotify.Rename != 0) {
				if _, err := os.Stat(s.cfg.SocketPath); os.IsNotExist(err) {
					return fmt.Errorf("socket %s removed out from under the daemon", s.cfg.SocketPath)
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("fsnotify: %w", err)
		}
	}
}
