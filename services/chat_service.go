package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/akinalp/destek/config"
	"github.com/akinalp/destek/database"
	"github.com/akinalp/destek/models"
	"github.com/akinalp/destek/pkg"
	"github.com/akinalp/destek/repository"
	"github.com/akinalp/destek/store"
)

// AutoReplyBody, ilk temas gönderiminde KALICI olarak yazılan otomatik
// sistem yanıtıdır. Widget'ın bellekte sentezlediği karşılama
// mesajlarından farklı olarak bu gerçek bir kayıttır.
const AutoReplyBody = "Thanks for reaching out! An agent will assist you shortly."

// OperatorPrefix, operatör yanıtlarında konuşmanın denormalize son-mesaj
// metnine eklenen ön ektir — konsol listesinde yazarı ayırt ettirir.
// Mesaj gövdesinin kendisine ön ek EKLENMEZ.
const OperatorPrefix = "Admin: "

// ChatService, chat çekirdeğinin kalıcı yazma yollarını toplar.
//
// Okuma tarafı store.Store aboneliklerindedir; buradaki her operasyon
// commit'ten sonra broker'a değişim event'i yayınlar — abonelere asla
// commit edilmemiş durum görünmez.
type ChatService interface {
	// SendFirstContact, ilk temas gönderimidir: konuşmayı idempotent
	// oluşturur, kullanıcı mesajını ve otomatik yanıtı kalıcı yazar.
	// Konuşma oluşturulduysa (veya zaten varsa) ID'si her durumda döner —
	// mesaj yazımı sonradan başarısız olsa bile widget ID'yi benimser
	// (reuse politikasında bir sonraki gönderim aynı kaydı kullanır).
	SendFirstContact(ctx context.Context, userID, userLabel, body string) (conversationID string, err error)
	SendUserMessage(ctx context.Context, conversationID, body string) error
	SendOperatorReply(ctx context.Context, conversationID, body string) error
	MarkRead(ctx context.Context, conversationID string) error
	EraseConversation(ctx context.Context, conversationID string) error
	ListConversations(ctx context.Context) ([]models.Conversation, error)
	ListMessages(ctx context.Context, conversationID string) ([]models.Message, error)
}

// chatService, ChatService interface'inin implementasyonu.
type chatService struct {
	db       *sql.DB
	convRepo repository.ConversationRepository
	msgRepo  repository.MessageRepository
	broker   *store.Broker
	policy   config.ReconcilePolicy

	// Transaction kapsamlı repository üretimi — EraseConversation,
	// silme adımlarını tx üzerinden koşan repo'larla çalıştırır.
	newConvRepo func(database.TxQuerier) repository.ConversationRepository
	newMsgRepo  func(database.TxQuerier) repository.MessageRepository
}

// NewChatService, constructor.
func NewChatService(
	db *sql.DB,
	convRepo repository.ConversationRepository,
	msgRepo repository.MessageRepository,
	broker *store.Broker,
	policy config.ReconcilePolicy,
) ChatService {
	return &chatService{
		db:          db,
		convRepo:    convRepo,
		msgRepo:     msgRepo,
		broker:      broker,
		policy:      policy,
		newConvRepo: repository.NewSQLiteConversationRepo,
		newMsgRepo:  repository.NewSQLiteMessageRepo,
	}
}

// SendFirstContact, konuşma oluşturma + mesaj yazımlarını yürütür.
//
// Konuşma oluşturma ile mesaj insert'i TEK transaction DEĞİLDİR:
// oluşturma başarılı olup mesaj yazımı başarısız olursa boş bir konuşma
// kalır. Bu bilinçli bir kabul - ne yapılacağı ReconcilePolicy'ye bağlıdır:
//   - reuse (varsayılan): deterministik ID sayesinde bir sonraki gönderim
//     aynı kaydı benimser, ek iş gerekmez
//   - cleanup: bu çağrının oluşturduğu boş kayıt hemen silinir
func (s *chatService) SendFirstContact(ctx context.Context, userID, userLabel, body string) (string, error) {
	req := models.SendMessageRequest{Body: body}
	if err := req.Validate(); err != nil {
		return "", fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	conv := &models.Conversation{
		ID:          models.ConversationIDFor(userID),
		UserID:      userID,
		UserLabel:   userLabel,
		LastMessage: req.Body,
		Status:      models.ConversationStatusNew,
	}

	created, err := s.convRepo.CreateIfAbsent(ctx, conv)
	if err != nil {
		return "", fmt.Errorf("failed to create conversation: %w", err)
	}
	if created {
		s.broker.PublishConversation(store.ChangeAdded, conv.ID, conv.UserID)
	}

	userMsg := &models.Message{
		ConversationID: conv.ID,
		Sender:         models.SenderUser,
		Body:           req.Body,
	}
	if err := s.msgRepo.Create(ctx, userMsg); err != nil {
		return s.reconcileFirstContact(ctx, conv, created, err)
	}
	s.broker.PublishMessage(store.ChangeAdded, conv.ID)

	// Otomatik yanıt yalnızca konuşmayı BU çağrı oluşturduysa yazılır —
	// eşzamanlı sekmeler veya reuse politikasıyla benimsenen mevcut kayıt
	// ikinci bir otomatik yanıt üretmez.
	if created {
		autoReply := &models.Message{
			ConversationID: conv.ID,
			Sender:         models.SenderSystem,
			Body:           AutoReplyBody,
		}
		if err := s.msgRepo.Create(ctx, autoReply); err != nil {
			// Kullanıcı mesajı commit edildi — konuşma artık boş değil,
			// cleanup politikası bile kaydı silmez.
			return conv.ID, fmt.Errorf("failed to create auto-reply: %w", err)
		}
		s.broker.PublishMessage(store.ChangeAdded, conv.ID)
	}

	// Konuşma zaten vardıysa (reuse veya eşzamanlı sekme) denormalize
	// alanları bu gönderimle güncelle. Yeni oluşturulduysa alanlar zaten
	// gönderim değerlerini taşıyor.
	if !created {
		if err := s.convRepo.TouchOnUserSend(ctx, conv.ID, req.Body, userMsg.CreatedAt); err != nil {
			return conv.ID, fmt.Errorf("failed to update conversation: %w", err)
		}
		s.broker.PublishConversation(store.ChangeModified, conv.ID, conv.UserID)
	}

	return conv.ID, nil
}

// reconcileFirstContact, ilk temas mesaj yazımı başarısız olduğunda
// politikayı uygular ve widget'a dönecek (conversationID, err) çiftini kurar.
func (s *chatService) reconcileFirstContact(ctx context.Context, conv *models.Conversation, created bool, cause error) (string, error) {
	cause = fmt.Errorf("failed to create message: %w", cause)

	if s.policy == config.ReconcileCleanup && created {
		if err := s.convRepo.Delete(ctx, conv.ID); err != nil {
			log.Printf("[chat] cleanup of empty conversation %s failed: %v", conv.ID, err)
			return conv.ID, cause
		}
		s.broker.PublishConversation(store.ChangeRemoved, conv.ID, conv.UserID)
		return "", cause
	}

	return conv.ID, cause
}

// SendUserMessage, mevcut konuşmaya son kullanıcı mesajı yazar.
// Denormalize alanlar güncellenir ve status "new"e döner.
func (s *chatService) SendUserMessage(ctx context.Context, conversationID, body string) error {
	req := models.SendMessageRequest{Body: body}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	conv, err := s.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}

	msg := &models.Message{
		ConversationID: conversationID,
		Sender:         models.SenderUser,
		Body:           req.Body,
	}
	if err := s.msgRepo.Create(ctx, msg); err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	s.broker.PublishMessage(store.ChangeAdded, conversationID)

	if err := s.convRepo.TouchOnUserSend(ctx, conversationID, req.Body, msg.CreatedAt); err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}
	s.broker.PublishConversation(store.ChangeModified, conversationID, conv.UserID)

	return nil
}

// SendOperatorReply, operatör yanıtını yazar.
//
// İyimser yerel ekleme yoktur — konsol kendi canlı mesaj aboneliğinin
// yanıtı yansıtmasına güvenir. Status BİLEREK değiştirilmez: operatörün
// kendi yanıtı konuşmayı kendisi için "new" yapmamalı. Denormalize
// son-mesaj metni operatör yazarlığını belirtmek için ön ek alır.
func (s *chatService) SendOperatorReply(ctx context.Context, conversationID, body string) error {
	req := models.SendMessageRequest{Body: body}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	conv, err := s.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}

	msg := &models.Message{
		ConversationID: conversationID,
		Sender:         models.SenderOperator,
		Body:           req.Body,
	}
	if err := s.msgRepo.Create(ctx, msg); err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	s.broker.PublishMessage(store.ChangeAdded, conversationID)

	if err := s.convRepo.TouchOnOperatorReply(ctx, conversationID, OperatorPrefix+req.Body, msg.CreatedAt); err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}
	s.broker.PublishConversation(store.ChangeModified, conversationID, conv.UserID)

	return nil
}

// MarkRead, konuşmayı okundu olarak işaretler.
// Geçiş tek yönlüdür (new → read) ve repository katmanında idempotenttir.
func (s *chatService) MarkRead(ctx context.Context, conversationID string) error {
	conv, err := s.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}

	if err := s.convRepo.MarkRead(ctx, conversationID); err != nil {
		return err
	}
	s.broker.PublishConversation(store.ChangeModified, conversationID, conv.UserID)

	return nil
}

// EraseConversation, konuşmanın tüm mesajlarını ve ardından konuşma
// kaydını TEK transaction içinde siler (all-or-nothing batch).
//
// Herhangi bir adım başarısız olursa transaction geri alınır — yarım
// silme (mesajlar gitmiş ama kayıt duruyor, ya da tersi) hiçbir aboneye
// görünmez; sistem başlangıç durumunda kalır.
func (s *chatService) EraseConversation(ctx context.Context, conversationID string) error {
	conv, err := s.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}

	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := s.newMsgRepo(tx).DeleteByConversation(ctx, conversationID); err != nil {
			return err
		}
		return s.newConvRepo(tx).Delete(ctx, conversationID)
	})
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to erase conversation: %w", err)
	}

	s.broker.PublishMessage(store.ChangeRemoved, conversationID)
	s.broker.PublishConversation(store.ChangeRemoved, conversationID, conv.UserID)

	return nil
}

// ListConversations, tüm konuşmaları son aktiviteye göre döner
// (konsolun REST yüzeyi için — canlı olmayan snapshot).
func (s *chatService) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	return s.convRepo.ListByRecency(ctx)
}

// ListMessages, bir konuşmanın tam mesaj geçmişini döner.
func (s *chatService) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	if _, err := s.convRepo.GetByID(ctx, conversationID); err != nil {
		return nil, err
	}
	return s.msgRepo.ListByConversation(ctx, conversationID)
}
