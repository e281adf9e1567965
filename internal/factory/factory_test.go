package factory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFactoryRefusesDevelopmentSecretsInProduction(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		pepper  string
		wantErr string
	}{
		{name: "default jwt secret", secret: "", pepper: "a-real-pepper", wantErr: "JWT_SECRET"},
		{name: "short jwt secret", secret: "short", pepper: "a-real-pepper", wantErr: "JWT_SECRET"},
		{name: "default pepper", secret: "0123456789abcdef0123456789abcdef", pepper: "", wantErr: "PASSWORD_PEPPER"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ENVIRONMENT", "production")
			t.Setenv("JWT_SECRET", tt.secret)
			t.Setenv("PASSWORD_PEPPER", tt.pepper)
			t.Setenv("SCYLLA_NODES", "10.0.0.1")

			f, err := NewFactory(context.Background())
			require.Error(t, err)
			assert.Nil(t, f)
			assert.Contains(t, err.Error(), "invalid configuration")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
