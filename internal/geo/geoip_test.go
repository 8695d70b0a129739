package geo

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpenIPLocator_MissingDatabase(t *testing.T) {
	_, err := OpenIPLocator(filepath.Join(t.TempDir(), "GeoLite2-City.mmdb"))
	assert.Error(t, err)
}
