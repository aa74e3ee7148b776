package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netbackuppro/netbackuppro/internal/session"
)

func fullCreds() Credentials {
	return Credentials{
		Personal: session.Credentials{Username: "ops", Password: "p"},
		Admin:    session.Credentials{Username: "admin", Password: "a"},
		Server:   session.Credentials{Username: "backupuser", Password: "s"},
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, fullCreds().Validate())
}

func TestValidateRejectsEmptySecrets(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Credentials)
	}{
		{"empty personal password", func(c *Credentials) { c.Personal.Password = "" }},
		{"empty admin password", func(c *Credentials) { c.Admin.Password = "" }},
		{"empty server password", func(c *Credentials) { c.Server.Password = "" }},
		{"empty personal username", func(c *Credentials) { c.Personal.Username = "" }},
		{"empty server username", func(c *Credentials) { c.Server.Username = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creds := fullCreds()
			tt.mutate(&creds)
			err := creds.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrPrecondition)
		})
	}
}

func TestCollectFromEnv(t *testing.T) {
	t.Setenv(EnvPersonalUser, "jdoe")
	t.Setenv(EnvPersonalPassword, "pp")
	t.Setenv(EnvAdminUser, "secops")
	t.Setenv(EnvAdminPassword, "ap")
	t.Setenv(EnvServerPassword, "sp")

	creds, err := Collect("backupuser")
	require.NoError(t, err)

	assert.Equal(t, session.Credentials{Username: "jdoe", Password: "pp"}, creds.Personal)
	assert.Equal(t, session.Credentials{Username: "secops", Password: "ap"}, creds.Admin)
	assert.Equal(t, session.Credentials{Username: "backupuser", Password: "sp"}, creds.Server)
	assert.NoError(t, creds.Validate())
}

func TestVerifyUnreachableServer(t *testing.T) {
	// TEST-NET-1 address, nothing listens there.
	err := Verify("192.0.2.1", 22, fullCreds())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPrecondition)
}
