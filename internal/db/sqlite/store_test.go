package sqlite

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/polimarket-api/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenMemory()
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store
}

func mustUser(t *testing.T, store *Store, name string) *models.User {
	t.Helper()
	user, err := store.CreateUser(context.Background(), name, name+"@espol.edu.ec", "hash")
	require.NoError(t, err)
	return user
}

func mustProduct(t *testing.T, store *Store, sellerID int64, title string) *models.Product {
	t.Helper()
	product := &models.Product{Title: title, Price: 10, SellerID: sellerID}
	require.NoError(t, store.CreateProduct(context.Background(), product))
	return product
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	ana := mustUser(t, store, "ana")
	assert.NotZero(t, ana.ID)
	assert.Equal(t, "ana@espol.edu.ec", ana.Email)
	assert.Equal(t, "hash", ana.PasswordHash)

	_, err := store.CreateUser(ctx, "other", "ana@espol.edu.ec", "x")
	require.ErrorIs(t, err, models.ErrDuplicateEmail)

	byEmail, err := store.GetUserByEmail(ctx, "ana@espol.edu.ec")
	require.NoError(t, err)
	assert.Equal(t, ana.ID, byEmail.ID)

	_, err = store.GetUserByID(ctx, 999)
	require.ErrorIs(t, err, models.ErrNotFound)

	tg, err := store.FindOrCreateTelegramUser(ctx, 777, "Tg")
	require.NoError(t, err)
	again, err := store.FindOrCreateTelegramUser(ctx, 777, "Tg Renamed")
	require.NoError(t, err)
	assert.Equal(t, tg.ID, again.ID)
	assert.Equal(t, "Tg Renamed", again.Name)
	assert.Empty(t, again.Email)
	assert.Equal(t, int64(777), again.TelegramID)
}

func TestProducts(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seller := mustUser(t, store, "seller")

	first := mustProduct(t, store, seller.ID, "bike")
	second := mustProduct(t, store, seller.ID, "lamp")

	got, err := store.GetProduct(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "bike", got.Title)
	assert.Equal(t, "seller", got.SellerName)

	_, err = store.GetProduct(ctx, 12345)
	require.ErrorIs(t, err, models.ErrNotFound)

	list, err := store.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestFindOrCreateChatIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seller := mustUser(t, store, "seller")
	buyer := mustUser(t, store, "buyer")
	other := mustUser(t, store, "other")
	product := mustProduct(t, store, seller.ID, "bike")

	first, err := store.FindOrCreateChat(ctx, product.ID, buyer.ID, seller.ID)
	require.NoError(t, err)
	second, err := store.FindOrCreateChat(ctx, product.ID, buyer.ID, seller.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, buyer.ID, first.BuyerID)
	assert.Equal(t, seller.ID, first.SellerID)

	third, err := store.FindOrCreateChat(ctx, product.ID, other.ID, seller.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID)
}

func TestFindOrCreateChatConcurrent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seller := mustUser(t, store, "seller")
	buyer := mustUser(t, store, "buyer")
	product := mustProduct(t, store, seller.ID, "bike")

	const workers = 8
	ids := make([]int64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			chat, err := store.FindOrCreateChat(ctx, product.ID, buyer.ID, seller.ID)
			if assert.NoError(t, err) {
				ids[i] = chat.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestFindOrCreateChatFailures(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seller := mustUser(t, store, "seller")
	buyer := mustUser(t, store, "buyer")
	product := mustProduct(t, store, seller.ID, "bike")

	_, err := store.FindOrCreateChat(ctx, product.ID, seller.ID, seller.ID)
	require.ErrorIs(t, err, models.ErrInvalidOperation)

	_, err = store.FindOrCreateChat(ctx, product.ID+100, buyer.ID, seller.ID)
	require.ErrorIs(t, err, models.ErrNotFound)

	_, err = store.GetChat(ctx, 4242)
	require.ErrorIs(t, err, models.ErrNotFound)

	_, err = store.AppendMessage(ctx, 4242, buyer.ID, "hi")
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestListChatsForUserNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seller := mustUser(t, store, "seller")
	buyer := mustUser(t, store, "buyer")
	stranger := mustUser(t, store, "stranger")
	bike := mustProduct(t, store, seller.ID, "bike")
	lamp := mustProduct(t, store, seller.ID, "lamp")

	older, err := store.FindOrCreateChat(ctx, bike.ID, buyer.ID, seller.ID)
	require.NoError(t, err)
	newer, err := store.FindOrCreateChat(ctx, lamp.ID, buyer.ID, seller.ID)
	require.NoError(t, err)

	for _, userID := range []int64{buyer.ID, seller.ID} {
		chats, err := store.ListChatsForUser(ctx, userID)
		require.NoError(t, err)
		require.Len(t, chats, 2)
		assert.Equal(t, newer.ID, chats[0].ID)
		assert.Equal(t, older.ID, chats[1].ID)
		assert.Equal(t, "lamp", chats[0].ProductTitle)
		assert.Equal(t, "buyer", chats[0].BuyerName)
		assert.Equal(t, "seller", chats[0].SellerName)
	}

	chats, err := store.ListChatsForUser(ctx, stranger.ID)
	require.NoError(t, err)
	assert.Empty(t, chats)
}

func TestMessagesKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seller := mustUser(t, store, "seller")
	buyer := mustUser(t, store, "buyer")
	product := mustProduct(t, store, seller.ID, "bike")
	chat, err := store.FindOrCreateChat(ctx, product.ID, buyer.ID, seller.ID)
	require.NoError(t, err)

	const perAuthor = 25
	var wg sync.WaitGroup
	var mu sync.Mutex
	var appended []int64
	for _, authorID := range []int64{buyer.ID, seller.ID} {
		wg.Add(1)
		go func(authorID int64) {
			defer wg.Done()
			for i := 0; i < perAuthor; i++ {
				msg, err := store.AppendMessage(ctx, chat.ID, authorID, fmt.Sprintf("%d-%d", authorID, i))
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				appended = append(appended, msg.ID)
				mu.Unlock()
			}
		}(authorID)
	}
	wg.Wait()

	messages, err := store.ListMessages(ctx, chat.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2*perAuthor)

	// Сообщения одного автора идут в порядке отправки, время не убывает
	next := map[int64]int{}
	for i, msg := range messages {
		if i > 0 {
			assert.Less(t, messages[i-1].ID, msg.ID)
			assert.False(t, msg.CreatedAt.Before(messages[i-1].CreatedAt))
		}
		assert.Equal(t, fmt.Sprintf("%d-%d", msg.AuthorID, next[msg.AuthorID]), msg.Text)
		next[msg.AuthorID]++
	}

	assert.ElementsMatch(t, appended, messageIDs(messages))
	assert.Equal(t, "buyer", authorName(messages, buyer.ID))
}

func messageIDs(messages []models.Message) []int64 {
	ids := make([]int64, 0, len(messages))
	for _, msg := range messages {
		ids = append(ids, msg.ID)
	}
	return ids
}

func authorName(messages []models.Message, authorID int64) string {
	for _, msg := range messages {
		if msg.AuthorID == authorID {
			return msg.AuthorName
		}
	}
	return ""
}
