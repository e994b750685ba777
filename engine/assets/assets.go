package assets

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/animate/engine/assets/loaders"
	"github.com/spaghettifunk/animate/engine/core"
	"github.com/spaghettifunk/animate/engine/resources"
)

const (
	DefaultShaderDir  = "shaders"
	DefaultTextureDir = "textures"

	shaderExtension = ".spv"
	// pending reload notifications beyond this are dropped; the ids repeat anyway
	changedBacklog = 32
)

var ErrClosed = errors.New("asset manager already closed")

type AssetInfo struct {
	Path       string
	Type       resources.ResourceType
	LastLoaded time.Time
}

// AssetManager indexes every file under the assets root and keeps the index
// current with an fsnotify watcher. Rewritten shader binaries are announced on
// Changed so the render loop can rebuild the pipelines using them.
type AssetManager struct {
	root       string
	shaderDir  string
	textureDir string

	assets  map[string]AssetInfo
	loaders map[resources.ResourceType]Loader

	mutex sync.RWMutex

	done     chan struct{}
	stopped  chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
	watching bool
	changed  chan string
}

func NewAssetManager() (*AssetManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &AssetManager{
		shaderDir:  DefaultShaderDir,
		textureDir: DefaultTextureDir,
		assets:     make(map[string]AssetInfo),
		loaders:    make(map[resources.ResourceType]Loader),
		fsnotify:   fsWatch,
		changed:    make(chan string, changedBacklog),
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}, nil
}

// Initialize indexes assetsDir and starts watching it. shaderDir is relative
// to assetsDir; an empty value keeps DefaultShaderDir.
func (am *AssetManager) Initialize(assetsDir, shaderDir string) error {
	root, err := filepath.Abs(assetsDir)
	if err != nil {
		return err
	}
	am.root = root
	if shaderDir != "" {
		am.shaderDir = filepath.ToSlash(filepath.Clean(shaderDir))
	}

	am.registerLoader(resources.ResourceTypeShader, &loaders.ShaderLoader{})
	am.registerLoader(resources.ResourceTypeImage, &loaders.TextureLoader{})

	if err := am.addRecursive(root); err != nil {
		return err
	}
	am.watching = true
	go am.start()

	core.LogInfo("asset manager watching %s (%d assets indexed)", root, am.Count())
	return nil
}

// addRecursive starts watching the named directory and all sub-directories.
func (am *AssetManager) addRecursive(name string) error {
	if am.closed() {
		return ErrClosed
	}
	return am.watchRecursive(name)
}

func (am *AssetManager) registerLoader(assetType resources.ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

func (am *AssetManager) closed() bool {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	return am.isClosed
}

// Count is the number of indexed assets.
func (am *AssetManager) Count() int {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	return len(am.assets)
}

// Changed delivers the id of every shader binary written after Initialize.
func (am *AssetManager) Changed() <-chan string {
	return am.changed
}

func (am *AssetManager) assetPath(name string, resourceType resources.ResourceType) (string, error) {
	switch resourceType {
	case resources.ResourceTypeShader:
		return path.Join(am.shaderDir, name+shaderExtension), nil
	case resources.ResourceTypeImage:
		return path.Join(am.textureDir, name), nil
	default:
		return "", fmt.Errorf("unknown resource type %s", resourceType)
	}
}

// LoadAsset loads name through the loader registered for resourceType.
func (am *AssetManager) LoadAsset(name string, resourceType resources.ResourceType) (*resources.Resource, error) {
	key, err := am.assetPath(name, resourceType)
	if err != nil {
		return nil, err
	}

	am.mutex.Lock()
	asset, exists := am.assets[key]
	if exists {
		asset.LastLoaded = time.Now()
		am.assets[key] = asset
	}
	loader, loaderExists := am.loaders[resourceType]
	am.mutex.Unlock()

	if !exists {
		return nil, fmt.Errorf("asset not found: %s", key)
	}
	if asset.Type != resourceType {
		return nil, fmt.Errorf("asset %s is a %s, not a %s", key, asset.Type, resourceType)
	}
	if !loaderExists {
		return nil, fmt.Errorf("no loader registered for asset type: %s", resourceType)
	}

	return loader.Load(filepath.Join(am.root, filepath.FromSlash(key)), name)
}

func (am *AssetManager) UnloadAsset(asset *resources.Resource) error {
	am.mutex.RLock()
	loader, ok := am.loaders[asset.Type]
	am.mutex.RUnlock()
	if !ok {
		return fmt.Errorf("no loader registered for asset type: %s", asset.Type)
	}
	return loader.Unload(asset)
}

// LoadShader returns the SPIR-V words of the shader binary id.
func (am *AssetManager) LoadShader(id string) ([]uint32, error) {
	res, err := am.LoadAsset(id, resources.ResourceTypeShader)
	if err != nil {
		return nil, err
	}
	return res.Data.([]uint32), nil
}

// LoadTexture decodes the image name from the texture directory.
func (am *AssetManager) LoadTexture(name string) (image.Image, error) {
	res, err := am.LoadAsset(name, resources.ResourceTypeImage)
	if err != nil {
		return nil, err
	}
	return res.Data.(image.Image), nil
}

// Shutdown stops the watcher and closes Changed. Safe to call twice.
func (am *AssetManager) Shutdown() {
	am.mutex.Lock()
	if am.isClosed {
		am.mutex.Unlock()
		return
	}
	am.isClosed = true
	am.mutex.Unlock()

	close(am.done)
	if am.watching {
		<-am.stopped
	} else {
		am.fsnotify.Close()
		close(am.changed)
	}
}

func (am *AssetManager) start() {
	defer close(am.stopped)
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			am.handleEvent(e)

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", err)

		case <-am.done:
			am.fsnotify.Close()
			close(am.changed)
			return
		}
	}
}

func (am *AssetManager) handleEvent(e fsnotify.Event) {
	s, err := os.Stat(e.Name)
	if err == nil && s.IsDir() {
		if e.Op.Has(fsnotify.Create) {
			if err := am.watchRecursive(e.Name); err != nil {
				core.LogWarn("failed to watch %s: %s", e.Name, err)
			}
		}
		return
	}
	if e.Op.Has(fsnotify.Create) || e.Op.Has(fsnotify.Write) {
		if key, ok := am.handleFileEvent(e.Name); ok {
			am.notifyShader(key)
		}
	}
	// a removed path can no longer be stat'ed, drop it from both the index and the watch list
	if e.Op.Has(fsnotify.Remove) || e.Op.Has(fsnotify.Rename) {
		am.removeAsset(e.Name)
		_ = am.fsnotify.Remove(e.Name)
	}
}

func (am *AssetManager) notifyShader(key string) {
	dir, file := path.Split(key)
	if strings.TrimSuffix(dir, "/") != am.shaderDir || path.Ext(file) != shaderExtension {
		return
	}
	id := strings.TrimSuffix(file, shaderExtension)
	select {
	case am.changed <- id:
		core.LogDebug("shader '%s' changed", id)
	default:
		core.LogWarn("shader change backlog full, dropped '%s'", id)
	}
}

// watchRecursive adds all directories under the given one to the watch list
// and indexes the files it walks past.
func (am *AssetManager) watchRecursive(root string) error {
	return filepath.Walk(root, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return am.fsnotify.Add(walkPath)
		}
		am.handleFileEvent(walkPath)
		return nil
	})
}

func (am *AssetManager) relative(p string) (string, bool) {
	rel, err := filepath.Rel(am.root, p)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// handleFileEvent records a created or modified file and returns its key.
func (am *AssetManager) handleFileEvent(p string) (string, bool) {
	key, ok := am.relative(p)
	if !ok {
		return "", false
	}
	assetType := determineAssetType(key)
	if assetType == resources.ResourceTypeNone {
		return "", false
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.assets[key] = AssetInfo{
		Path:       key,
		Type:       assetType,
		LastLoaded: time.Now(),
	}
	return key, true
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(p string) {
	key, ok := am.relative(p)
	if !ok {
		return
	}
	am.mutex.Lock()
	defer am.mutex.Unlock()

	delete(am.assets, key)
}

func determineAssetType(p string) resources.ResourceType {
	switch strings.ToLower(path.Ext(p)) {
	case shaderExtension:
		return resources.ResourceTypeShader
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp":
		return resources.ResourceTypeImage
	default:
		return resources.ResourceTypeNone
	}
}
