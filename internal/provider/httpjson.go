package provider

import (
	"context"
	"time"

	"smart_environment/internal/models"
)

// HTTPJSON polls a JSON endpoint such as an on-premises NodeMCU sensor
// (http://192.168.0.10/data.json) or any API whose fields a FieldMap can
// locate.
type HTTPJSON struct {
	name   string
	source models.Source
	url    string
	fields FieldMap
	client Doer
	clock  func() time.Time
}

func NewHTTPJSON(name string, src models.Source, url string, fields FieldMap, opts Options) *HTTPJSON {
	opts = opts.withDefaults()
	fields.applyDefaults()
	return &HTTPJSON{
		name:   name,
		source: src,
		url:    url,
		fields: fields,
		client: opts.Client,
		clock:  opts.Clock,
	}
}

func (p *HTTPJSON) Name() string          { return p.name }
func (p *HTTPJSON) Source() models.Source { return p.source }

func (p *HTTPJSON) Fetch(ctx context.Context) (models.Sample, error) {
	doc, err := getJSON(ctx, p.client, p.url)
	if err != nil {
		return models.Sample{}, err
	}
	return sampleFromDoc(doc, p.fields, p.source, p.clock())
}
