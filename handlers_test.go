package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"kopkar/pkg/keanggotaan"
)

// Caller-input mistakes must come back as 400, not 500.
func TestBusinessErrorStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err  error
		want int
	}{
		{keanggotaan.ErrUnknownJenis, http.StatusBadRequest},
		{keanggotaan.ErrInvalidDeposit, http.StatusBadRequest},
		{fmt.Errorf("%w, got -5", keanggotaan.ErrInvalidDeposit), http.StatusBadRequest},
		{keanggotaan.ErrAnggotaNotFound, http.StatusNotFound},
		{keanggotaan.ErrAlreadyExited, http.StatusConflict},
		{keanggotaan.ErrAnggotaNotExited, http.StatusConflict},
		{keanggotaan.ErrConcurrentReturn, http.StatusConflict},
		{errors.New("backend unavailable"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		businessError(c, tc.err)
		if w.Code != tc.want {
			t.Fatalf("%v mapped to %d, want %d", tc.err, w.Code, tc.want)
		}
	}
}
