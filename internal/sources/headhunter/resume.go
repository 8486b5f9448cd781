package headhunter

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

type Resumes struct {
	Items []*Resume
}

type Resume struct {
	Title string
	ID    string `json:"id,omitempty"`
}

func (c *Client) GetMineResumes(ctx context.Context) (*Resumes, error) {
	items, err := c.GetItems(ctx, fmt.Sprintf("%s/resumes/%s", c.APIURL, mineResumID), nil, 0)
	if err != nil {
		return nil, err
	}

	var resumes []*Resume
	if err = mapstructure.Decode(items, &resumes); err != nil {
		return nil, err
	}

	return &Resumes{Items: resumes}, nil
}

func (r *Resumes) Titles() []string {
	titles := make([]string, 0, len(r.Items))
	for _, v := range r.Items {
		titles = append(titles, v.Title)
	}
	return titles
}

func (r *Resumes) FindByTitle(title string) *Resume {
	for _, resume := range r.Items {
		if resume.Title == title {
			return resume
		}
	}
	return nil
}
