package headhunter

import (
	"context"
	"fmt"
)

const apiNegotiationPath = "/negotiations"

// Negotiate sends a response (an application) to the vacancy with the resume.
func (c *Client) Negotiate(ctx context.Context, resumeID, vacancyID, message string) error {
	data := map[string]string{
		"resume_id":  resumeID,
		"vacancy_id": vacancyID,
		"message":    message,
	}

	return c.postFormData(ctx, fmt.Sprintf("%s%s", c.APIURL, apiNegotiationPath), data)
}
