package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/UkralStul/testbook/internal/api"
	"github.com/UkralStul/testbook/internal/domain"
	"github.com/UkralStul/testbook/internal/view"
)

var errUsage = errors.New("bad arguments")

// describe делает ошибку API читаемой для консоли.
func describe(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return fmt.Sprintf("%s (HTTP %d)", apiErr.Detail, apiErr.StatusCode)
	}
	return err.Error()
}

// needArgs проверяет минимальное число позиционных аргументов.
func needArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < n {
			return fmt.Errorf("%w: want %s", errUsage, cmd.UseLine())
		}
		return nil
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid post id %q", errUsage, s)
	}
	return id, nil
}

func feedType(following bool) view.FeedType {
	if following {
		return view.FeedFollowing
	}
	return view.FeedAll
}

func (a *app) feedCmd() *cobra.Command {
	var following bool
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Show a feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := view.NewFeed(a.deps(), feedType(following))
			defer f.Close()
			if err := f.Mount(cmd.Context()); err != nil {
				return err
			}
			printPosts(a.out, f.Posts())
			return nil
		},
	}
	cmd.Flags().BoolVar(&following, "following", false, "show posts of followed users only")
	return cmd
}

func (a *app) postCmd() *cobra.Command {
	var image, video string
	cmd := &cobra.Command{
		Use:   "post <content>",
		Short: "Publish a post",
		Args:  needArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := domain.NewPost{Content: strings.Join(args, " ")}
			if image != "" {
				in.ImageURL = &image
			}
			if video != "" {
				in.VideoURL = &video
			}

			f := view.NewFeed(a.deps(), view.FeedAll)
			defer f.Close()
			p, err := f.CreatePost(cmd.Context(), in)
			if err != nil {
				return err
			}
			printPost(a.out, p)
			return nil
		},
	}
	cmd.Flags().StringVar(&image, "image", "", "image URL")
	cmd.Flags().StringVar(&video, "video", "", "video URL")
	return cmd
}

// withPost загружает пост, выполняет действие и печатает итоговое состояние.
func (a *app) withPost(ctx context.Context, idArg string, fn func(d *view.PostDetail, id int64) error) error {
	id, err := parseID(idArg)
	if err != nil {
		return err
	}
	d := view.NewPostDetail(a.deps(), id)
	defer d.Close()
	if err := d.Load(ctx); err != nil {
		return err
	}
	if err := fn(d, id); err != nil {
		return err
	}
	if p, ok := d.Post(); ok {
		printPost(a.out, p)
	}
	return nil
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <post-id>",
		Short: "Show a post with comments and reactions",
		Args:  needArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			d := view.NewPostDetail(a.deps(), id)
			defer d.Close()
			if err := d.Load(cmd.Context()); err != nil {
				return err
			}
			p, _ := d.Post()
			printDetail(a.out, p)
			return nil
		},
	}
}

func (a *app) reactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "react <post-id> <type>",
		Short: "Toggle a reaction (like, love, haha, wow, sad, angry)",
		Args:  needArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := domain.ParseReactionType(args[1])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			return a.withPost(ctx, args[0], func(d *view.PostDetail, id int64) error {
				return d.React(ctx, id, t)
			})
		},
	}
}

func (a *app) repostCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repost <post-id>",
		Short: "Toggle a repost",
		Args:  needArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withPost(ctx, args[0], func(d *view.PostDetail, id int64) error {
				return d.Repost(ctx, id)
			})
		},
	}
}

func (a *app) editCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit <post-id> <content>",
		Short: "Replace the post text",
		Args:  needArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			content := strings.Join(args[1:], " ")
			return a.withPost(ctx, args[0], func(d *view.PostDetail, id int64) error {
				if err := d.StartEdit(id); err != nil {
					return err
				}
				if err := d.SetDraft(id, content); err != nil {
					return err
				}
				return d.SaveEdit(ctx, id)
			})
		},
	}
}

func (a *app) commentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "comment <post-id> <content>",
		Short: "Add a comment",
		Args:  needArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			content := strings.Join(args[1:], " ")
			return a.withPost(ctx, args[0], func(d *view.PostDetail, id int64) error {
				c, err := d.Comment(ctx, id, content)
				if err != nil {
					return err
				}
				printComment(a.out, c)
				return nil
			})
		},
	}
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <post-id>",
		Short: "Delete a post",
		Args:  needArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withPost(ctx, args[0], func(d *view.PostDetail, id int64) error {
				if err := d.RequestDelete(id); err != nil {
					return err
				}
				if err := d.Delete(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "deleted post #%d\n", id)
				return nil
			})
		},
	}
}

func (a *app) loadProfile(ctx context.Context, username string) (*view.Profile, error) {
	p := view.NewProfile(a.deps(), username)
	if err := p.Load(ctx); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

func (a *app) profileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profile <username>",
		Short: "Show a profile and its posts",
		Args:  needArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.loadProfile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer p.Close()
			prof, _ := p.Profile()
			printProfile(a.out, prof)
			printPosts(a.out, p.Posts())
			return nil
		},
	}
}

// relationCmd строит команду-переключатель отношения с пользователем.
func (a *app) relationCmd(use, short string, toggle func(*view.Profile, context.Context) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <username>",
		Short: short,
		Args:  needArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := a.loadProfile(ctx, args[0])
			if err != nil {
				return err
			}
			defer p.Close()
			if err := toggle(p, ctx); err != nil {
				return err
			}
			prof, _ := p.Profile()
			printProfile(a.out, prof)
			return nil
		},
	}
}

func (a *app) followCmd() *cobra.Command {
	return a.relationCmd("follow", "Toggle following", (*view.Profile).ToggleFollow)
}

func (a *app) blockCmd() *cobra.Command {
	return a.relationCmd("block", "Toggle blocking", (*view.Profile).ToggleBlock)
}

func (a *app) followersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "followers <username>",
		Short: "List followers",
		Args:  needArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l := view.NewFollowers(a.deps(), args[0])
			defer l.Close()
			if err := l.Load(cmd.Context()); err != nil {
				return err
			}
			printUsers(a.out, l.Users())
			return nil
		},
	}
}

func (a *app) followingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "following <username>",
		Short: "List followed users",
		Args:  needArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l := view.NewFollowing(a.deps(), args[0])
			defer l.Close()
			if err := l.Load(cmd.Context()); err != nil {
				return err
			}
			printUsers(a.out, l.Users())
			return nil
		},
	}
}
