package target

import (
	"errors"
	"testing"

	"bytemomo/oarfish/internal/domain"
	"bytemomo/oarfish/internal/transport"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want domain.AttemptOutcome
	}{
		{
			name: "missing database",
			err:  &transport.Fault{Code: "1", Message: `failed: FATAL:  database "ghost" does not exist`},
			want: domain.AttemptTransient,
		},
		{
			name: "access denied code",
			err:  &transport.Fault{Code: "3", Message: "Access Denied"},
			want: domain.AttemptRejected,
		},
		{
			name: "other fault",
			err:  &transport.Fault{Code: "1", Message: "ValueError: bad"},
			want: domain.AttemptRejected,
		},
		{
			name: "http status",
			err:  &transport.StatusError{Code: 502, Status: "502 Bad Gateway"},
			want: domain.AttemptError,
		},
		{
			name: "dial",
			err:  errors.New("dial tcp: connection refused"),
			want: domain.AttemptError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(translate("authenticate", tt.err)).Outcome)
		})
	}
}

func TestClassifyMaster(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want domain.AttemptOutcome
	}{
		{name: "dump succeeded", err: nil, want: domain.AttemptSuccess},
		{
			name: "access denied code",
			err:  &transport.Fault{Code: "3", Message: "Access Denied"},
			want: domain.AttemptRejected,
		},
		{
			name: "access denied text",
			err:  &transport.Fault{Code: "1", Message: "Traceback\nodoo.exceptions.AccessDenied: Access Denied"},
			want: domain.AttemptRejected,
		},
		{
			name: "manager disabled after password check",
			err:  &transport.Fault{Code: "3", Message: "Database management functions blocked, admin disabled database listing"},
			want: domain.AttemptSuccess,
		},
		{
			name: "dump of missing database failed",
			err:  &transport.Fault{Code: "1", Message: `Couldn't dump database: database "oarfish_x" does not exist`},
			want: domain.AttemptSuccess,
		},
		{
			name: "unreachable",
			err:  errors.New("dial tcp: connection refused"),
			want: domain.AttemptError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyMaster(translate("dump", tt.err)).Outcome)
		})
	}
}

func TestTranslate_WrapsTransport(t *testing.T) {
	err := translate("res.users.read", errors.New("connection reset"))
	assert.ErrorIs(t, err, ErrTransport)
	assert.Nil(t, translate("noop", nil))
}
