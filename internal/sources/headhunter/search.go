package headhunter

import (
	"context"
	"fmt"
	"net/url"
	"reflect"
	"strconv"

	"github.com/mitchellh/mapstructure"
)

const (
	SearchPath = "/vacancies"
)

// SearchParams are the /vacancies query parameters.
// hhparam is the custom tag holding the query key, see buildParams.
type SearchParams struct {
	Text        string   `mapstructure:"text" hhparam:"text"`
	Areas       []int    `mapstructure:"area" hhparam:"area"`
	Schedules   []string `mapstructure:"schedule" hhparam:"schedule"`
	Experience  string   `mapstructure:"experience" hhparam:"experience"`
	OrderBy     string   `mapstructure:"order_by" hhparam:"order_by"`
	SearchField string   `mapstructure:"search_field" hhparam:"search_field"`
	Employer    uint     `mapstructure:"employer_id" hhparam:"employer_id"`
	Period      uint     `mapstructure:"period" hhparam:"period"`
	PerPage     int      `mapstructure:"per_page" hhparam:"per_page"`
}

// Search returns up to limit vacancies matching params.
func (c *Client) Search(ctx context.Context, params SearchParams, limit int) (*Vacancies, error) {
	if params.PerPage <= 0 || params.PerPage > maxPerPage {
		params.PerPage = maxPerPage
	}
	if limit > 0 && limit < params.PerPage {
		params.PerPage = limit
	}

	items, err := c.GetItems(ctx, c.APIURL+SearchPath, buildParams(&params), limit)
	if err != nil {
		return nil, err
	}

	var vacancies []*Vacancy
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &vacancies,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(items); err != nil {
		return nil, fmt.Errorf("decoding vacancies: %w", err)
	}

	return &Vacancies{Items: vacancies}, nil
}

func buildParams(params *SearchParams) url.Values {
	q := url.Values{}
	value := reflect.ValueOf(params).Elem()

	for _, field := range reflect.VisibleFields(value.Type()) {
		key := field.Tag.Get("hhparam")
		if key == "" {
			continue
		}

		switch v := value.FieldByIndex(field.Index).Interface().(type) {
		case []int:
			for _, item := range v {
				q.Add(key, strconv.Itoa(item))
			}
		case []string:
			for _, item := range v {
				q.Add(key, item)
			}
		default:
			s := fmt.Sprintf("%v", v)
			if s != "" && s != "0" {
				q.Set(key, s)
			}
		}
	}

	return q
}
