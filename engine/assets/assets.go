package assets

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/framecore/engine/core"
)

const shaderBinaryExt = ".spv"

type AssetInfo struct {
	Path       string
	LastLoaded time.Time
}

// ShaderWatcher indexes the compiled shaders under a directory tree and
// reports every .spv file that is created or rewritten.
type ShaderWatcher struct {
	assets map[string]AssetInfo
	mutex  sync.RWMutex

	done      chan struct{}
	closeOnce sync.Once
	started   bool
	fsnotify  *fsnotify.Watcher
	changes   chan string
	errors    chan error
}

func NewShaderWatcher() (*ShaderWatcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create shader watcher")
	}

	return &ShaderWatcher{
		assets:   make(map[string]AssetInfo),
		fsnotify: fsWatch,
		changes:  make(chan string, 16),
		errors:   make(chan error, 4),
		done:     make(chan struct{}),
	}, nil
}

// Watch indexes dir and starts delivering changes for it and every
// sub-directory.
func (sw *ShaderWatcher) Watch(dir string) error {
	if err := sw.watchRecursive(dir); err != nil {
		return errors.Wrapf(err, "failed to watch %s", dir)
	}
	if !sw.started {
		sw.started = true
		go sw.start()
	}
	core.LogDebug("watching %s for shader changes (%d shaders indexed)", dir, len(sw.Assets()))
	return nil
}

// Changes delivers the path of each .spv file that was created or written.
func (sw *ShaderWatcher) Changes() <-chan string { return sw.changes }

func (sw *ShaderWatcher) Errors() <-chan error { return sw.errors }

// Assets returns the indexed shaders ordered by path.
func (sw *ShaderWatcher) Assets() []AssetInfo {
	sw.mutex.RLock()
	defer sw.mutex.RUnlock()

	out := make([]AssetInfo, 0, len(sw.assets))
	for _, a := range sw.assets {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func (sw *ShaderWatcher) Lookup(path string) (AssetInfo, bool) {
	sw.mutex.RLock()
	defer sw.mutex.RUnlock()
	a, ok := sw.assets[filepath.Clean(path)]
	return a, ok
}

func (sw *ShaderWatcher) Close() error {
	var err error
	sw.closeOnce.Do(func() {
		if sw.started {
			close(sw.done)
			return
		}
		err = sw.fsnotify.Close()
		close(sw.changes)
		close(sw.errors)
	})
	return err
}

func (sw *ShaderWatcher) start() {
	for {
		select {
		case e, ok := <-sw.fsnotify.Events:
			if !ok {
				return
			}
			sw.handleEvent(e)

		case err, ok := <-sw.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("shader watcher: %v", err)
			select {
			case sw.errors <- err:
			default:
			}

		case <-sw.done:
			if err := sw.fsnotify.Close(); err != nil {
				core.LogWarn("shader watcher close: %v", err)
			}
			close(sw.changes)
			close(sw.errors)
			return
		}
	}
}

func (sw *ShaderWatcher) handleEvent(e fsnotify.Event) {
	if e.Op&fsnotify.Create != 0 {
		if s, err := os.Stat(e.Name); err == nil && s.IsDir() {
			if err := sw.watchRecursive(e.Name); err != nil {
				core.LogWarn("shader watcher: %v", err)
			}
			return
		}
	}
	if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		sw.removeAsset(e.Name)
		return
	}
	if e.Op&(fsnotify.Create|fsnotify.Write) == 0 || !isShaderBinary(e.Name) {
		return
	}

	path := sw.indexAsset(e.Name)
	select {
	case sw.changes <- path:
	default:
		core.LogWarn("shader change queue full, dropping %s", path)
	}
}

// watchRecursive adds dir and all directories below it to the watch list and
// indexes the shaders it finds on the way.
func (sw *ShaderWatcher) watchRecursive(dir string) error {
	return filepath.Walk(dir, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return sw.fsnotify.Add(walkPath)
		}
		if isShaderBinary(walkPath) {
			sw.indexAsset(walkPath)
		}
		return nil
	})
}

func (sw *ShaderWatcher) indexAsset(path string) string {
	sw.mutex.Lock()
	defer sw.mutex.Unlock()

	path = filepath.Clean(path)
	sw.assets[path] = AssetInfo{
		Path:       path,
		LastLoaded: time.Now(),
	}
	return path
}

func (sw *ShaderWatcher) removeAsset(path string) {
	sw.mutex.Lock()
	defer sw.mutex.Unlock()

	delete(sw.assets, filepath.Clean(path))
}

func isShaderBinary(path string) bool {
	return filepath.Ext(path) == shaderBinaryExt
}
