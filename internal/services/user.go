package services

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/therapulse-backend/internal/clients/gcp"
	"github.com/yungbote/therapulse-backend/internal/data/repos"
	types "github.com/yungbote/therapulse-backend/internal/domain"
	"github.com/yungbote/therapulse-backend/internal/pkg/logger"
)

// UserProfileUpdate lists the mutable therapist profile fields. Nil pointers
// leave the column untouched.
type UserProfileUpdate struct {
	FullName       *string `json:"full_name"`
	Username       *string `json:"username"`
	Phone          *string `json:"phone"`
	Specialization *string `json:"specialization"`
	LicenseNumber  *string `json:"license_number"`
	Experience     *string `json:"experience"`
	Bio            *string `json:"bio"`
	ClinicAddress  *string `json:"clinic_address"`
}

type UserService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*types.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, update UserProfileUpdate) (*types.User, error)
	UploadProfileImage(ctx context.Context, userID uuid.UUID, filename string, data []byte) (string, error)
}

type userService struct {
	log      *logger.Logger
	userRepo repos.UserRepo
	bucket   gcp.BucketService
}

func NewUserService(log *logger.Logger, userRepo repos.UserRepo, bucket gcp.BucketService) UserService {
	return &userService{
		log:      log.With("service", "UserService"),
		userRepo: userRepo,
		bucket:   bucket,
	}
}

func (us *userService) GetProfile(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	users, err := us.userRepo.GetByIDs(ctx, nil, []uuid.UUID{userID})
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("user not found")
	}
	return users[0], nil
}

func (us *userService) UpdateProfile(ctx context.Context, userID uuid.UUID, update UserProfileUpdate) (*types.User, error) {
	updates := map[string]any{}
	set := func(column string, v *string) {
		if v != nil {
			updates[column] = strings.TrimSpace(*v)
		}
	}
	set("full_name", update.FullName)
	set("username", update.Username)
	set("phone", update.Phone)
	set("specialization", update.Specialization)
	set("license_number", update.LicenseNumber)
	set("experience", update.Experience)
	set("bio", update.Bio)
	set("clinic_address", update.ClinicAddress)

	if len(updates) > 0 {
		if err := us.userRepo.UpdateFields(ctx, nil, userID, updates); err != nil {
			return nil, fmt.Errorf("failed to update profile: %w", err)
		}
	}
	return us.GetProfile(ctx, userID)
}

func (us *userService) UploadProfileImage(ctx context.Context, userID uuid.UUID, filename string, data []byte) (string, error) {
	ext := strings.ToLower(path.Ext(filename))
	if ext != ".png" && ext != ".jpg" && ext != ".jpeg" && ext != ".webp" {
		return "", fmt.Errorf("unsupported image type %q", ext)
	}
	key := fmt.Sprintf("profiles/%s/%s%s", userID, uuid.NewString(), ext)
	if err := us.bucket.UploadFile(ctx, gcp.BucketCategoryMedia, key, bytes.NewReader(data)); err != nil {
		return "", Wrap(ErrUploadFailed, err)
	}
	url := us.bucket.GetPublicURL(gcp.BucketCategoryMedia, key)
	if err := us.userRepo.UpdateProfileImage(ctx, nil, userID, url); err != nil {
		return "", fmt.Errorf("failed to persist profile image: %w", err)
	}
	return url, nil
}
