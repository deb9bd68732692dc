package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

// decode reads a JSON body into dst and validates its struct tags.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(readBody(r))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %s", ErrBadRequest, describe(err))
	}
	return nil
}

// describe renders validation failures as field=tag pairs.
func describe(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fe.Namespace()+" failed "+fe.Tag())
	}
	return strings.Join(parts, ", ")
}

func intParam(raw, name string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", ErrBadRequest, name)
	}
	return n, nil
}

func actor(r *http.Request) (string, error) {
	a := strings.TrimSpace(r.Header.Get(actorHeader))
	if a == "" {
		return "", ErrNoActor
	}
	return a, nil
}
