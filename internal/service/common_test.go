package service

import (
	"fmt"
	"testing"

	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

func TestRepoErrorMapsColumnOverflowToValidation(t *testing.T) {
	err := repoError(fmt.Errorf("%w: character varying(100)", repository.ErrValueTooLong), "file", 0)
	requireCode(t, err, apperrors.CodeValidation)

	requireCode(t, repoError(repository.ErrNotFound, "ticket", 4), apperrors.CodeNotFound)
	requireCode(t, repoError(repository.ErrDuplicate, "user", 0), apperrors.CodeConflict)
}
