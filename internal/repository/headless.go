package repository

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"

	"grocery_deals/pkg/headless"
)

const pageRootSelector = "html"

// headlessPageRepository renders pages in headless Chrome before handing the
// markup over, for stores whose offers are injected by JavaScript.
type headlessPageRepository struct {
	strategy headless.WaitStrategy
	logger   logrus.FieldLogger
}

// NewHeadlessPageRepository creates a repository that renders pages with chromedp.
func NewHeadlessPageRepository(logger logrus.FieldLogger) PageRepository {
	return &headlessPageRepository{strategy: headless.WaitForBody, logger: logger}
}

func (r *headlessPageRepository) Fetch(ctx context.Context, url string) (io.Reader, error) {
	return headless.FetchRenderedContent(ctx, url, r.strategy, pageRootSelector, r.logger.Debugf)
}
