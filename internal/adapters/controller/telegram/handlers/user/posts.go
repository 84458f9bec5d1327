package user

import (
	"context"
	"errors"

	"github.com/zenpost/planner-bot/internal/domain/common/errorz"
	"github.com/zenpost/planner-bot/internal/domain/utils/location"
	tele "gopkg.in/telebot.v3"
)

func (h Handler) postsList(c tele.Context) error {
	h.logger.Infof("(user: %d) edit posts list", c.Sender().ID)

	pending, err := h.posts.GetPendingByOwner(context.Background(), c.Sender().ID)
	if err != nil {
		h.logger.Errorf("(user: %d) error while getting pending posts: %v", c.Sender().ID, err)
		return c.Edit(
			h.layout.Text(c, "technical_issues", err.Error()),
			h.layout.Markup(c, "mainMenu:back"),
		)
	}

	markup := c.Bot().NewMarkup()
	var rows []tele.Row
	for _, post := range pending {
		rows = append(rows, markup.Row(*h.layout.Button(c, "user:posts:post", struct {
			ID    string
			Label string
		}{
			ID:    post.ID,
			Label: post.Channel.DisplayName + " · " + post.FireAt.In(location.Location()).Format("02.01 15:04"),
		})))
	}
	rows = append(rows, markup.Row(*h.layout.Button(c, "mainMenu:back")))
	markup.Inline(rows...)

	return c.Edit(
		h.layout.Text(c, "posts_list", len(pending)),
		markup,
	)
}

func (h Handler) postMenu(c tele.Context) error {
	postID := c.Callback().Data
	if postID == "" {
		return errorz.InvalidCallbackData
	}

	post, err := h.posts.Get(context.Background(), postID)
	if err != nil {
		if errors.Is(err, errorz.PostNotFound) {
			return c.Edit(
				h.layout.Text(c, "post_not_found"),
				h.layout.Markup(c, "user:backToPosts"),
			)
		}
		h.logger.Errorf("(user: %d) error while getting post: %v", c.Sender().ID, err)
		return c.Edit(
			h.layout.Text(c, "technical_issues", err.Error()),
			h.layout.Markup(c, "user:backToPosts"),
		)
	}
	if post.OwnerID != c.Sender().ID {
		return errorz.Forbidden
	}

	preview := post.Payload
	if post.Caption != "" {
		preview = post.Caption
	}
	if len([]rune(preview)) > 100 {
		preview = string([]rune(preview)[:100]) + "…"
	}

	return c.Edit(
		h.layout.Text(c, "post_details", struct {
			Channel string
			Kind    string
			FireAt  string
			Preview string
		}{
			Channel: post.Channel.DisplayName,
			Kind:    string(post.Kind),
			FireAt:  post.FireAt.In(location.Location()).Format("02.01.2006 15:04"),
			Preview: preview,
		}),
		h.layout.Markup(c, "user:post:menu", struct {
			ID string
		}{
			ID: post.ID,
		}),
	)
}

// cancelPost is idempotent: a post that is already gone, sent or cancelled
// answers with a neutral notice instead of an error.
func (h Handler) cancelPost(c tele.Context) error {
	postID := c.Callback().Data
	if postID == "" {
		return errorz.InvalidCallbackData
	}

	cancelled, err := h.posts.Cancel(context.Background(), postID, c.Sender().ID)
	if err != nil {
		h.logger.Errorf("(user: %d) error while cancelling post: %v", c.Sender().ID, err)
		return c.Edit(
			h.layout.Text(c, "technical_issues", err.Error()),
			h.layout.Markup(c, "user:backToPosts"),
		)
	}
	if !cancelled {
		return c.Edit(
			h.layout.Text(c, "post_not_cancellable"),
			h.layout.Markup(c, "user:backToPosts"),
		)
	}

	return c.Edit(
		h.layout.Text(c, "post_cancelled"),
		h.layout.Markup(c, "user:backToPosts"),
	)
}
