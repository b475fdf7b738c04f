package main

import (
	"context"
	"fmt"
	"time"

	"github.com/UkralStul/testbook/internal/storage"
)

type seedUser struct {
	username, displayName, bio, picture string
	follows                             []int
}

type seedPost struct {
	author  int
	content string
	image   string
	daysAgo int
}

type seedComment struct {
	post, author int
	content      string
}

type seedReaction struct {
	post, author int
	reaction     string
}

type seedRepost struct {
	original, author int
	content          string
	hoursAgo         int
}

var seedUsers = []seedUser{
	{"sarahjohnson", "Sarah Johnson", "Mom of 3 | Coffee enthusiast ☕ | Living my best life!", "/static/images/avatar-sarah.jpg", []int{1, 2, 4}},
	{"mikechen", "Mike Chen", "Adventure seeker 🏔️ | Photography lover | Always exploring", "/static/images/avatar-mike.jpg", []int{0, 2, 3, 7}},
	{"emmadavis", "Emma Davis", "Professional photographer 📸 | Nature lover | Dog mom 🐕", "/static/images/avatar-emma.jpg", []int{0, 1, 4, 6}},
	{"alexrodriguez", "XxAlexRodriguezxX", "Gamer | Tech enthusiast | Always online 🎮", "/static/images/avatar-alex.jpg", []int{1, 7}},
	{"lisawilliams", "Lisa Williams", "Fitness coach 💪 | Healthy living advocate | Let's get fit!", "/static/images/avatar-lisa.jpg", []int{0, 2, 5}},
	{"jamestaylor", "James Taylor", "Music producer 🎵 | Food critic | NYC", "/static/images/avatar-james.jpg", []int{4, 6, 7}},
	{"oliviabrown", "Olivia Brown", "Travel blogger ✈️ | 50 countries and counting!", "/static/images/avatar-olivia.jpg", []int{2, 5}},
	{"danielkim", "Danny Kim", "Software engineer | Coffee addict | Building cool stuff 👨‍💻", "/static/images/avatar-daniel.jpg", []int{1, 3, 5}},
	{"newuser123", "New User", "", "/static/images/default-avatar.jpg", nil},
}

var seedPosts = []seedPost{
	{0, "Just had the most amazing family Christmas! Look at this photo we took! 🎄❤️", "/static/images/christmas-family.jpg", 2},
	{0, "Coffee time is the best time of the day ☕", "", 5},
	{0, "Weekend vibes with the kiddos! Life is good 😊", "/static/images/kids-playing.jpg", 8},
	{1, "Made it to the summit! The view from up here is absolutely breathtaking 🏔️", "/static/images/mountain-view.jpg", 1},
	{1, "Captured this stunning sunset during my hike today. Nature never disappoints!", "/static/images/sunset-hike.jpg", 4},
	{1, "Adventure awaits! Who's ready for the next expedition?", "", 10},
	{2, "Meet Buddy! He's the best boy and he knows it 🐕❤️", "/static/images/dog-buddy.jpg", 1},
	{2, "Early morning photoshoot in the woods. The lighting was perfect! 📸", "/static/images/forest-morning.jpg", 3},
	{2, "New camera gear arrived! Can't wait to test it out this weekend!", "", 7},
	{3, "Just finished setting up my new gaming rig! RGB everything! 🎮✨", "/static/images/gaming-setup.jpg", 3},
	{3, "Anyone else playing the new game that dropped today? It's AMAZING!", "", 6},
	{4, "Morning workout done! Starting the day right 💪 Who else is hitting the gym today?", "/static/images/gym-workout.jpg", 0},
	{4, "Healthy meal prep for the week! Eating clean feels so good 🥗", "/static/images/meal-prep.jpg", 2},
	{4, "Remember: consistency is key! You've got this! 💪", "", 5},
	{5, "Finished mixing this track. Super excited to share it with you all soon! 🎵", "", 1},
	{5, "Found this amazing little restaurant in Brooklyn! The pasta was incredible 🍝", "/static/images/pasta-dish.jpg", 4},
	{6, "Greetings from Tokyo! This city is absolutely incredible! 🇯🇵", "/static/images/tokyo-street.jpg", 2},
	{6, "Country #51 unlocked! Can't believe how far I've come on this journey ✈️", "", 6},
	{7, "Finally deployed that feature I've been working on for weeks! Time to celebrate 🎉", "", 1},
	{7, "Clean code is happy code. Just refactored the entire module! 👨‍💻", "/static/images/code-screen.jpg", 4},
	{7, "Coffee + Code = Perfect morning ☕💻", "", 7},
}

var seedComments = []seedComment{
	{0, 1, "Beautiful family! Merry Christmas! 🎄"},
	{0, 2, "Love this! Your family is adorable!"},
	{3, 0, "Wow! That view is incredible!"},
	{3, 7, "That's amazing! Which mountain is this?"},
	{6, 0, "Awww what a cutie! 🐕"},
	{6, 4, "I love Buddy! Give him pets for me!"},
	{11, 5, "You're inspiring me to get back to the gym!"},
	{15, 2, "The plating looks amazing!"},
	{16, 5, "Tokyo is on my bucket list! Enjoy!"},
}

var seedReactions = []seedReaction{
	{0, 1, "love"}, {0, 2, "love"}, {0, 4, "like"},
	{3, 0, "wow"}, {3, 2, "like"}, {3, 7, "love"},
	{6, 0, "love"}, {6, 1, "love"}, {6, 4, "love"},
	{9, 1, "wow"}, {9, 7, "like"},
	{11, 0, "like"}, {11, 2, "like"}, {11, 5, "love"},
	{16, 2, "wow"}, {16, 5, "like"},
}

var seedReposts = []seedRepost{
	{3, 0, "This is so inspiring! 🏔️", 5},
	{11, 5, "Motivation right here!", 14},
}

// fillWithMockData заполняет хранилище демо-данными.
func fillWithMockData(ctx context.Context, s storage.Storage, now time.Time) error {
	users := make([]*storage.User, len(seedUsers))
	for i, u := range seedUsers {
		created, err := s.CreateUser(ctx, &storage.User{
			Email:          u.username + "@testbook.com",
			Username:       u.username,
			DisplayName:    u.displayName,
			Bio:            u.bio,
			ProfilePicture: u.picture,
		})
		if err != nil {
			return fmt.Errorf("create user %s: %w", u.username, err)
		}
		users[i] = created
	}

	for i, u := range seedUsers {
		for _, j := range u.follows {
			if err := s.AddFollow(ctx, users[i].ID, users[j].ID); err != nil {
				return fmt.Errorf("follow %s -> %s: %w", u.username, seedUsers[j].username, err)
			}
		}
	}

	posts := make([]*storage.Post, len(seedPosts))
	for i, p := range seedPosts {
		post := &storage.Post{
			AuthorID:  users[p.author].ID,
			Content:   p.content,
			CreatedAt: now.AddDate(0, 0, -p.daysAgo),
		}
		if p.image != "" {
			image := p.image
			post.ImageURL = &image
		}
		created, err := s.CreatePost(ctx, post)
		if err != nil {
			return fmt.Errorf("create post %d: %w", i, err)
		}
		posts[i] = created
	}

	for i, c := range seedComments {
		if _, err := s.CreateComment(ctx, &storage.Comment{
			PostID:   posts[c.post].ID,
			AuthorID: users[c.author].ID,
			Content:  c.content,
		}); err != nil {
			return fmt.Errorf("create comment %d: %w", i, err)
		}
	}

	for i, r := range seedReactions {
		if _, err := s.UpsertReaction(ctx, &storage.Reaction{
			PostID:       posts[r.post].ID,
			UserID:       users[r.author].ID,
			ReactionType: r.reaction,
		}); err != nil {
			return fmt.Errorf("create reaction %d: %w", i, err)
		}
	}

	for i, r := range seedReposts {
		original := posts[r.original].ID
		if _, err := s.CreatePost(ctx, &storage.Post{
			AuthorID:       users[r.author].ID,
			Content:        r.content,
			IsRepost:       true,
			OriginalPostID: &original,
			CreatedAt:      now.Add(-time.Duration(r.hoursAgo) * time.Hour),
		}); err != nil {
			return fmt.Errorf("create repost %d: %w", i, err)
		}
	}
	return nil
}
