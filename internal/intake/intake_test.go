package intake

import (
	"context"
	"errors"
	"testing"

	"salterio-site/internal/backend"
	"salterio-site/internal/backend/backendtest"
	"salterio-site/internal/backend/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"grace@salterio.org", true},
		{"a@b.co", true},
		{"no-at-sign.org", false},
		{"two words@x.org", false},
		{"missing@tld", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidEmail(tt.email), tt.email)
	}
}

func TestSubmitEnquiryInvalidMakesNoStoreCalls(t *testing.T) {
	rows := backendtest.NewRowStore(memstore.New())
	svc := NewService(rows, nil)

	for _, form := range []EnquiryForm{
		{Name: "   ", Email: "grace@salterio.org"},
		{Name: "Grace", Email: "not-an-email"},
		{},
	} {
		_, err := svc.SubmitEnquiry(context.Background(), form)
		var verr ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, MsgEnquiryInvalid, verr.Message)
	}
	assert.Zero(t, rows.CallCount())
}

func TestSubmitEnquiryStoresTrimmedOpenRow(t *testing.T) {
	store := memstore.New()
	svc := NewService(store, nil)

	msg, err := svc.SubmitEnquiry(context.Background(), EnquiryForm{
		Name:    "  Grace Mwale ",
		Email:   " grace@salterio.org ",
		Phone:   " +260 97 000 ",
		Message: " Wedding booking ",
	})
	require.NoError(t, err)
	assert.Equal(t, MsgEnquirySent, msg)

	got, err := store.Select(context.Background(), backend.TableEnquiries, backend.Query{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Grace Mwale", got[0].String("name"))
	assert.Equal(t, "grace@salterio.org", got[0].String("email"))
	assert.Equal(t, "+260 97 000", got[0].String("phone"))
	assert.Equal(t, "Wedding booking", got[0].String("message"))
	assert.Equal(t, StatusOpen, got[0].String("status"))
}

func TestSubmitEnquiryInsertFailure(t *testing.T) {
	rows := backendtest.NewRowStore(memstore.New())
	rows.FailOn("insert", backend.TableEnquiries, errors.New("boom"))
	svc := NewService(rows, nil)

	_, err := svc.SubmitEnquiry(context.Background(), EnquiryForm{Name: "A", Email: "a@b.co"})
	var qerr *backend.QueryError
	assert.True(t, errors.As(err, &qerr))
}

func TestSubscribe(t *testing.T) {
	rows := backendtest.NewRowStore(memstore.New())
	svc := NewService(rows, nil)

	msg, err := svc.Subscribe(context.Background(), SubscribeForm{Email: " fan@salterio.org "})
	require.NoError(t, err)
	assert.Equal(t, MsgNewsletterThanks, msg)

	_, err = svc.Subscribe(context.Background(), SubscribeForm{Email: "nope"})
	assert.True(t, IsValidation(err))
	assert.Equal(t, MsgNewsletterBad, err.Error())
	assert.Zero(t, rows.CallCount())
}

func TestConfirm(t *testing.T) {
	assert.NoError(t, Confirm(true, "Delete this event?"))

	err := Confirm(false, "Delete this event?")
	assert.True(t, errors.Is(err, ErrNotConfirmed))
	assert.Equal(t, "Delete this event?", err.Error())
}
