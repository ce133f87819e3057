package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/lumen/engine/assets/loaders"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

type AssetInfo struct {
	Path       string
	Type       metadata.ResourceType
	LastLoaded time.Time
}

// AssetManager indexes everything under the asset directory and watches it
// for changes. A changed file is marked stale; the systems that own the
// GPU copy poll ConsumeStale at a safe point in the frame and re-import.
type AssetManager struct {
	baseDir string
	assets  map[string]AssetInfo
	loaders map[metadata.ResourceType]Loader
	stale   map[string]metadata.ResourceType

	mutex sync.RWMutex

	done     chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
}

func NewAssetManager() (*AssetManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &AssetManager{
		assets:   make(map[string]AssetInfo),
		loaders:  make(map[metadata.ResourceType]Loader),
		stale:    make(map[string]metadata.ResourceType),
		fsnotify: fsWatch,
		done:     make(chan struct{}),
	}, nil
}

func (am *AssetManager) Initialize(assetsDir string) error {
	am.baseDir = assetsDir

	go am.start()

	if err := am.addRecursive(assetsDir); err != nil {
		return err
	}

	// Register loaders
	am.registerLoader(metadata.ResourceTypeShader, &loaders.ShaderLoader{})
	am.registerLoader(metadata.ResourceTypeImage, &loaders.ImageLoader{})
	am.registerLoader(metadata.ResourceTypeBinary, &loaders.BinaryLoader{})

	return nil
}

// addRecursive starts watching the named directory and all sub-directories.
func (am *AssetManager) addRecursive(name string) error {
	if am.isClosed {
		return errors.New("asset manager already closed")
	}
	return am.watchRecursive(name, false)
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType metadata.ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

// LoadAsset loads an indexed asset using the loader registered for its type.
// The path is relative to the asset directory.
func (am *AssetManager) LoadAsset(path string, params interface{}) (*metadata.Resource, error) {
	am.mutex.Lock()
	asset, exists := am.assets[path]
	if exists {
		asset.LastLoaded = time.Now()
		am.assets[path] = asset
	}
	am.mutex.Unlock()
	if !exists {
		return nil, fmt.Errorf("asset not found: %s", path)
	}

	loader, loaderExists := am.loaders[asset.Type]
	if !loaderExists {
		return nil, fmt.Errorf("no loader registered for asset type: %d", asset.Type)
	}

	return loader.Load(filepath.Join(am.baseDir, path), asset.Type, params)
}

// ConsumeStale returns the assets whose files changed since the last call
// and clears the set.
func (am *AssetManager) ConsumeStale() map[string]metadata.ResourceType {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	if len(am.stale) == 0 {
		return nil
	}
	out := am.stale
	am.stale = make(map[string]metadata.ResourceType)
	return out
}

func (am *AssetManager) Shutdown() {
	if am.isClosed {
		return
	}
	am.isClosed = true
	close(am.done)
}

func (am *AssetManager) start() {
	for {
		select {
		case e := <-am.fsnotify.Events:
			s, err := os.Stat(e.Name)
			if err == nil && s != nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					am.watchRecursive(e.Name, false)
				}
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				am.handleFileEvent(e.Name, true)
			}
			// A deleted path cannot be stat'ed, so removal is attempted for
			// both files and directories.
			if e.Op&fsnotify.Remove != 0 {
				am.removeAsset(e.Name)
				am.fsnotify.Remove(e.Name)
			}

		case e := <-am.fsnotify.Errors:
			if e != nil {
				core.LogError(e.Error())
			}

		case <-am.done:
			am.fsnotify.Close()
			return
		}
	}
}

// watchRecursive adds all directories under the given one to the watch list.
func (am *AssetManager) watchRecursive(path string, unWatch bool) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if unWatch {
				return am.fsnotify.Remove(walkPath)
			}
			return am.fsnotify.Add(walkPath)
		}
		// Initial indexing is not a change, so files found during the walk
		// are not marked stale.
		am.handleFileEvent(walkPath, false)
		return nil
	})
}

// handleFileEvent indexes a created or modified file.
func (am *AssetManager) handleFileEvent(path string, markStale bool) {
	assetType := determineAssetType(path)
	if assetType == metadata.ResourceTypeNone {
		return
	}
	rel := am.relativePath(path)

	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.assets[rel] = AssetInfo{
		Path:       rel,
		Type:       assetType,
		LastLoaded: time.Now(),
	}
	if markStale {
		am.stale[rel] = assetType
		core.LogInfo("asset changed on disk: %s", rel)
	}
}

// removeAsset drops the asset from the index if it was deleted.
func (am *AssetManager) removeAsset(path string) {
	rel := am.relativePath(path)

	am.mutex.Lock()
	defer am.mutex.Unlock()
	delete(am.assets, rel)
	delete(am.stale, rel)
}

func (am *AssetManager) relativePath(path string) string {
	if am.baseDir == "" {
		return path
	}
	rel, err := filepath.Rel(am.baseDir, path)
	if err != nil {
		return path
	}
	return rel
}

func determineAssetType(path string) metadata.ResourceType {
	switch filepath.Ext(path) {
	case ".spv":
		return metadata.ResourceTypeShader
	case ".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff":
		return metadata.ResourceTypeImage
	case ".ltc":
		return metadata.ResourceTypeTextureCache
	case ".bin":
		return metadata.ResourceTypeBinary
	default:
		return metadata.ResourceTypeNone
	}
}
