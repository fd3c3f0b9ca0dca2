package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAction(t *testing.T) {
	assert.Equal(t, ActionValidate, ParseAction(" validate "))
	assert.Equal(t, ActionStatus, ParseAction("status"))
	assert.Equal(t, ActionUnknown, ParseAction("Validate"))
	assert.Equal(t, ActionUnknown, ParseAction("enroll"))
}

func TestCredentialActive(t *testing.T) {
	var nilCred *Credential
	assert.False(t, nilCred.Active())
	assert.False(t, (&Credential{Enabled: true}).Active())
	assert.False(t, (&Credential{Secret: []byte{1}}).Active())
	assert.True(t, (&Credential{Enabled: true, Secret: []byte{1}}).Active())
}
