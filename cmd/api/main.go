package main

import (
	"context"
	"log"
	"os"

	"cloud.google.com/go/firestore"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"google.golang.org/api/option"

	fbapp "firebase.google.com/go/v4"

	"keurimmo/internal/adapter/api"
	"keurimmo/internal/adapter/api/handler"
	apimiddleware "keurimmo/internal/adapter/api/middleware"
	"keurimmo/internal/adapter/api/router"
	"keurimmo/internal/adapter/repository"
	"keurimmo/internal/infrastructure/firebase"
	"keurimmo/internal/infrastructure/ratelimit"
	"keurimmo/internal/infrastructure/storage"
	"keurimmo/internal/infrastructure/websocket"
	"keurimmo/internal/usecase"
	"keurimmo/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	var opt option.ClientOption
	credentialsPath := ""

	serviceAccountJSON := os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON")
	if serviceAccountJSON != "" {
		opt = option.WithCredentialsJSON([]byte(serviceAccountJSON))
	} else {
		credentialsPath = os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH")
		if credentialsPath == "" {
			log.Fatalf("FIREBASE_SERVICE_ACCOUNT_JSON or FIREBASE_SERVICE_ACCOUNT_PATH is required")
		}
		if _, err := os.Stat(credentialsPath); os.IsNotExist(err) {
			log.Fatalf("Service account file does not exist: %s", credentialsPath)
		}
		opt = option.WithCredentialsFile(credentialsPath)
	}

	firebaseApp, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opt)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}

	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase Auth: %v", err)
	}

	firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opt)
	if err != nil {
		log.Fatalf("Failed to create Firestore client: %v", err)
	}
	defer firestoreClient.Close()

	storageClient, err := storage.NewCloudStorageClient(ctx, cfg.StorageBucket, cfg.FirebaseProject, credentialsPath)
	if err != nil {
		log.Fatalf("Failed to initialize Cloud Storage: %v", err)
	}
	defer storageClient.Close()

	messagingRepo := repository.NewFirestoreMessagingRepository(firestoreClient)
	profileRepo := repository.NewFirestoreProfileRepository(firestoreClient)
	listingRepo := repository.NewFirestoreListingRepository(firestoreClient)

	firebaseAuthClient := firebase.NewFirebaseAuthClient(authClient)
	rateLimiter := ratelimit.NewRateLimiter()

	directoryUseCase := usecase.NewDirectoryUseCase(messagingRepo, profileRepo, listingRepo)
	messagingUseCase := usecase.NewMessagingUseCase(messagingRepo, profileRepo, listingRepo)
	typingService := usecase.NewTypingService(messagingRepo)

	wsManager := websocket.NewManager(directoryUseCase, messagingUseCase, typingService, messagingRepo)
	wsManager.Start(ctx)

	e := echo.New()

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(authClient)

	handlers := router.Handlers{
		Conversation: handler.NewConversationHandler(directoryUseCase, rateLimiter),
		Message:      handler.NewMessageHandler(messagingUseCase, directoryUseCase, rateLimiter),
		Profile:      handler.NewProfileHandler(profileRepo),
		Listing:      handler.NewListingHandler(listingRepo),
		Upload:       handler.NewUploadHandler(storageClient, directoryUseCase, rateLimiter, cfg.MaxUploadSizeMB),
		WebSocket:    handler.NewWebSocketHandler(wsManager, authMiddleware),
		Health:       handler.NewHealthHandler(firebaseAuthClient),
	}

	router.Setup(e, handlers, authMiddleware)

	log.Printf("Starting server on port %s...", cfg.ServerPort)
	e.Logger.Fatal(e.Start(":" + cfg.ServerPort))
}
