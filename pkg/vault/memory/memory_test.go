package memory

import (
	"testing"

	"github.com/Schwartzmorn/filevault/pkg/vault"
	vaulttesting "github.com/Schwartzmorn/filevault/pkg/vault/testing"
)

func TestMemoryStore(t *testing.T) {
	suite := &vaulttesting.StoreTestSuite{
		NewStore: func(t *testing.T) vault.Store {
			return NewMemoryStore()
		},
	}
	suite.Run(t)
}
