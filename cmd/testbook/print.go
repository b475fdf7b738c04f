package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/UkralStul/testbook/internal/domain"
)

const timeLayout = "2006-01-02 15:04"

func printPosts(w io.Writer, posts []domain.Post) {
	if len(posts) == 0 {
		fmt.Fprintln(w, "no posts")
		return
	}
	for _, p := range posts {
		printPost(w, p)
	}
}

func printPost(w io.Writer, p domain.Post) {
	fmt.Fprintf(w, "#%d %s (@%s) %s", p.ID, p.AuthorDisplayName, p.AuthorUsername, p.CreatedAt.Local().Format(timeLayout))
	if p.IsRepost && p.OriginalPostID != nil {
		fmt.Fprintf(w, " reposted #%d", *p.OriginalPostID)
	}
	fmt.Fprintln(w)
	printBody(w, "    ", p)
	if p.OriginalPost != nil {
		o := p.OriginalPost
		fmt.Fprintf(w, "    > #%d %s (@%s)\n", o.ID, o.AuthorDisplayName, o.AuthorUsername)
		printBody(w, "    > ", *o)
	}

	stats := fmt.Sprintf("reactions: %d", p.ReactionsCount)
	if p.UserReaction != nil {
		stats += fmt.Sprintf(" (yours: %s)", *p.UserReaction)
	}
	stats += fmt.Sprintf(" | comments: %d | reposts: %d", p.CommentsCount, p.RepostsCount)
	if p.HasReposted {
		stats += " (reposted)"
	}
	fmt.Fprintf(w, "    %s\n\n", stats)
}

func printBody(w io.Writer, indent string, p domain.Post) {
	for _, line := range strings.Split(p.Content, "\n") {
		fmt.Fprintf(w, "%s%s\n", indent, line)
	}
	if p.ImageURL != nil && *p.ImageURL != "" {
		fmt.Fprintf(w, "%s[image] %s\n", indent, *p.ImageURL)
	}
	if p.VideoURL != nil && *p.VideoURL != "" {
		fmt.Fprintf(w, "%s[video] %s\n", indent, *p.VideoURL)
	}
}

// printDetail печатает пост со списками комментариев и реакций.
func printDetail(w io.Writer, p domain.Post) {
	printPost(w, p)
	if len(p.Reactions) > 0 {
		fmt.Fprintln(w, "reactions:")
		for _, r := range p.Reactions {
			fmt.Fprintf(w, "  %-6s @%s\n", r.ReactionType, r.Username)
		}
	}
	if len(p.Comments) > 0 {
		fmt.Fprintln(w, "comments:")
		for _, c := range p.Comments {
			printComment(w, c)
		}
	}
}

func printComment(w io.Writer, c domain.Comment) {
	fmt.Fprintf(w, "  #%d @%s %s: %s\n", c.ID, c.AuthorUsername, c.CreatedAt.Local().Format(timeLayout), c.Content)
}

func printProfile(w io.Writer, p domain.Profile) {
	fmt.Fprintf(w, "%s (@%s)\n", p.DisplayName, p.Username)
	if p.Bio != "" {
		fmt.Fprintf(w, "  %s\n", p.Bio)
	}
	fmt.Fprintf(w, "  posts: %d | followers: %d | following: %d\n", p.PostsCount, p.FollowersCount, p.FollowingCount)
	var marks []string
	if p.IsFollowing {
		marks = append(marks, "following")
	}
	if p.IsBlocked {
		marks = append(marks, "blocked")
	}
	if len(marks) > 0 {
		fmt.Fprintf(w, "  [%s]\n", strings.Join(marks, ", "))
	}
	fmt.Fprintln(w)
}

func printUsers(w io.Writer, users []domain.UserListItem) {
	if len(users) == 0 {
		fmt.Fprintln(w, "no users")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, u := range users {
		var marks []string
		if u.IsFollowing {
			marks = append(marks, "following")
		}
		if u.IsBlocked {
			marks = append(marks, "blocked")
		}
		fmt.Fprintf(tw, "@%s\t%s\t%s\n", u.Username, u.DisplayName, strings.Join(marks, ", "))
	}
	_ = tw.Flush()
}
