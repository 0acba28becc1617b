//go:build ignore

// dev-watch rebuilds and restarts the API whenever a Go file changes.
// Run it with: go run dev-watch.go
package main

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	binary   = "tmp/tour-booking"
	debounce = 400 * time.Millisecond
	stopWait = 10 * time.Second
)

type runner struct {
	mu  sync.Mutex
	cmd *exec.Cmd
}

func main() {
	fmt.Println("Tour Booking hot reload")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Fatal(err)
	}
	defer watcher.Close()

	if err := watchTree(watcher, "."); err != nil {
		log.Fatal(err)
	}

	r := &runner{}
	r.restart()

	var timer *time.Timer
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !skipDir(event.Name) {
					_ = watcher.Add(event.Name)
				}
			}
			if !strings.HasSuffix(event.Name, ".go") || event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove) == 0 {
				continue
			}
			fmt.Printf("File changed: %s\n", event.Name)
			// editors emit several events per save
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, r.restart)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Println("watch error:", err)

		case <-quit:
			r.stop()
			return
		}
	}
}

func skipDir(path string) bool {
	base := filepath.Base(path)
	return base == "_examples" || base == "tmp" || base == "vendor" || (strings.HasPrefix(base, ".") && base != ".")
}

func watchTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return err
		}
		if skipDir(path) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

func (r *runner) restart() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopLocked()

	fmt.Println("Building...")
	build := exec.Command("go", "build", "-o", binary, ".")
	build.Stdout = os.Stdout
	build.Stderr = os.Stderr
	if err := build.Run(); err != nil {
		fmt.Printf("Build failed: %v\n", err)
		return
	}

	cmd := exec.Command("./"+binary, "serve")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		fmt.Printf("Failed to start: %v\n", err)
		return
	}
	fmt.Println(strings.Repeat("=", 50))
	r.cmd = cmd
}

func (r *runner) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
}

// stopLocked lets the server shut down gracefully before killing it
func (r *runner) stopLocked() {
	if r.cmd == nil || r.cmd.Process == nil {
		return
	}
	done := make(chan struct{})
	go func(cmd *exec.Cmd) {
		_ = cmd.Wait()
		close(done)
	}(r.cmd)

	_ = r.cmd.Process.Signal(os.Interrupt)
	select {
	case <-done:
	case <-time.After(stopWait):
		_ = r.cmd.Process.Kill()
		<-done
	}
	r.cmd = nil
}
