package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"keurimmo/internal/domain/entity"
	"keurimmo/internal/domain/repository"
	"keurimmo/pkg/errors"
)

const profilesCollection = "profiles"

type firestoreProfileRepository struct {
	client *firestore.Client
}

func NewFirestoreProfileRepository(client *firestore.Client) repository.ProfileRepository {
	return &firestoreProfileRepository{
		client: client,
	}
}

func (r *firestoreProfileRepository) Create(ctx context.Context, profile *entity.Profile) error {
	now := time.Now()
	profile.CreatedAt = now
	profile.UpdatedAt = now

	_, err := r.client.Collection(profilesCollection).Doc(profile.ID).Set(ctx, profile)
	if err != nil {
		return errors.DataAccess("Failed to create profile", err)
	}
	return nil
}

func (r *firestoreProfileRepository) GetByID(ctx context.Context, id string) (*entity.Profile, error) {
	doc, err := r.client.Collection(profilesCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Profile", err)
		}
		return nil, errors.DataAccess("Failed to get profile", err)
	}

	var profile entity.Profile
	if err := doc.DataTo(&profile); err != nil {
		return nil, errors.Internal("Failed to parse profile data", err)
	}
	return &profile, nil
}

func (r *firestoreProfileRepository) Update(ctx context.Context, profile *entity.Profile) error {
	profile.UpdatedAt = time.Now()

	_, err := r.client.Collection(profilesCollection).Doc(profile.ID).Set(ctx, profile)
	if err != nil {
		return errors.DataAccess("Failed to update profile", err)
	}
	return nil
}
