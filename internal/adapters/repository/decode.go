package repository

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"

	"github.com/ralucacrepcea/scoreapp/internal/adapters/docstore"
	"github.com/ralucacrepcea/scoreapp/internal/domain/model"
	"github.com/ralucacrepcea/scoreapp/internal/domain/rubric"
)

// decode fills out from doc.Data and sets its id.
func decode(doc docstore.Document, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "mapstructure",
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if err := dec.Decode(doc.Data); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDecode, doc.ID, err)
	}

	switch v := out.(type) {
	case *model.Team:
		v.ID = doc.ID
	case *model.Round:
		v.ID = doc.ID
	case *model.Checkpoint:
		v.ID = doc.ID
	case *model.Scan:
		v.ID = doc.ID
	case *model.AuditRecord:
		v.ID = doc.ID
	case *rubric.Topic:
		v.ID = doc.ID
		v.Columns = rubric.FromDocument(doc.Data["columns"])
	}
	return nil
}

func decodeAll[T any](docs []docstore.Document, log func(id string, err error)) []T {
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		var v T
		if err := decode(d, &v); err != nil {
			log(d.ID, err)
			continue
		}
		out = append(out, v)
	}
	return out
}
