package repositories

import "github.com/vsinha/endoplan/pkg/domain/entities"

// InstanceLoader reads a problem instance from a file
type InstanceLoader interface {
	LoadInstance(path string) (*entities.Instance, error)
}
