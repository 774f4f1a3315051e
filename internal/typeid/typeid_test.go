package typeid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_PrefixRoundTrip(t *testing.T) {
	id := NewBindingID()

	assert.NoError(t, Validate(id, PrefixBinding))
	assert.Error(t, Validate(id, PrefixShape))
	assert.NotEqual(t, id, NewBindingID())
}

func TestValidate_Garbage(t *testing.T) {
	assert.Error(t, Validate("not a typeid", PrefixShape))
}
