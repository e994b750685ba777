package assets

import "github.com/spaghettifunk/animate/engine/resources"

type Loader interface {
	Load(path, name string) (*resources.Resource, error)
	Unload(*resources.Resource) error
}
