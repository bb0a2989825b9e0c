package services

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/bluerally/buooy-backend/internal/models"
	"github.com/bluerally/buooy-backend/internal/repositories"
	"github.com/bluerally/buooy-backend/pkg/storage"
)

// MaxImageSize bounds every uploaded image.
const MaxImageSize = 10 << 20

// UserCertificateView names a certificate level held by a user.
type UserCertificateView struct {
	CertificateID   uint   `json:"certificate_id"`
	CertificateName string `json:"certificate_name"`
	LevelID         uint   `json:"certificate_level_id"`
	Level           string `json:"level"`
}

// UserProfile is a user as shown to themselves or others. Contact details
// are only filled for the owner.
type UserProfile struct {
	ID               uint                  `json:"id"`
	Name             string                `json:"name"`
	Email            string                `json:"email,omitempty"`
	Phone            string                `json:"phone,omitempty"`
	LoginPlatform    string                `json:"login_platform,omitempty"`
	ProfileImage     string                `json:"profile_image"`
	Introduction     string                `json:"introduction"`
	Region           string                `json:"region"`
	InterestedSports []models.Sport        `json:"interested_sports"`
	Certificates     []UserCertificateView `json:"certificates"`
}

// Upload is an image received from a client.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type UserService struct {
	store   *repositories.Store
	storage storage.ObjectStorage
	log     *zap.Logger
}

func NewUserService(store *repositories.Store, objects storage.ObjectStorage, log *zap.Logger) *UserService {
	return &UserService{store: store, storage: objects, log: log.Named("user")}
}

func (s *UserService) Me(ctx context.Context, userID uint) (*UserProfile, error) {
	return s.profile(ctx, userID, true)
}

// Profile is the public view of another user.
func (s *UserService) Profile(ctx context.Context, userID uint) (*UserProfile, error) {
	return s.profile(ctx, userID, false)
}

func (s *UserService) UpdateMe(ctx context.Context, userID uint, req models.UpdateUserRequest) (*UserProfile, error) {
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		user, err := tx.Users.GetUserByID(ctx, userID)
		if err != nil {
			return notFoundOr(err, "user")
		}

		if req.Name != nil {
			user.Name = strings.TrimSpace(*req.Name)
		}
		if req.Email != nil {
			user.Email = *req.Email
		}
		if req.Phone != nil {
			user.Phone = *req.Phone
		}
		if req.Introduction != nil {
			user.Introduction = *req.Introduction
		}
		if req.Region != nil {
			user.Region = *req.Region
		}
		if err := tx.Users.UpdateUser(ctx, user); err != nil {
			return fmt.Errorf("update user: %w", err)
		}

		if req.InterestedSportIDs != nil {
			if err := tx.Users.ReplaceInterestedSports(ctx, userID, req.InterestedSportIDs); err != nil {
				return fmt.Errorf("update interested sports: %w", err)
			}
		}
		if req.CertificateLevelIDs != nil {
			levels, err := tx.Sports.GetLevelsByIDs(ctx, req.CertificateLevelIDs)
			if err != nil {
				return fmt.Errorf("load certificate levels: %w", err)
			}
			if len(levels) != len(unique(req.CertificateLevelIDs)) {
				return Invalid("unknown certificate level")
			}
			if err := tx.Users.ReplaceCertificateLevels(ctx, userID, unique(req.CertificateLevelIDs)); err != nil {
				return fmt.Errorf("update certificates: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Me(ctx, userID)
}

// UploadProfileImage stores the image and points the user at it.
func (s *UserService) UploadProfileImage(ctx context.Context, userID uint, img Upload) (string, error) {
	if err := checkImage(img); err != nil {
		return "", err
	}
	user, err := s.store.Users.GetUserByID(ctx, userID)
	if err != nil {
		return "", notFoundOr(err, "user")
	}

	url, err := s.storage.Upload(ctx, storage.NewKey(fmt.Sprintf("profile/%d", userID), img.Filename), img.Body, img.Size, img.ContentType)
	if err != nil {
		return "", fmt.Errorf("upload profile image: %w", err)
	}
	user.ProfileImage = url
	if err := s.store.Users.UpdateUser(ctx, user); err != nil {
		return "", fmt.Errorf("update user: %w", err)
	}
	s.log.Info("profile image updated", zap.Uint("user_id", userID))
	return url, nil
}

func (s *UserService) Sports(ctx context.Context) ([]models.Sport, error) {
	return s.store.Sports.ListSports(ctx)
}

func (s *UserService) Certificates(ctx context.Context, sportID uint) ([]models.Certificate, error) {
	return s.store.Sports.ListCertificates(ctx, sportID)
}

func (s *UserService) CertificateLevels(ctx context.Context, certificateID uint) ([]models.CertificateLevel, error) {
	return s.store.Sports.ListCertificateLevels(ctx, certificateID)
}

func (s *UserService) profile(ctx context.Context, userID uint, owner bool) (*UserProfile, error) {
	user, err := s.store.Users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "user")
	}
	if !owner && !user.IsActive {
		return nil, NotFound("user not found")
	}

	certs, err := s.certificates(ctx, userID)
	if err != nil {
		return nil, err
	}

	p := &UserProfile{
		ID:               user.ID,
		Name:             user.Name,
		ProfileImage:     user.ProfileImage,
		Introduction:     user.Introduction,
		Region:           user.Region,
		InterestedSports: user.InterestedSports,
		Certificates:     certs,
	}
	if p.InterestedSports == nil {
		p.InterestedSports = []models.Sport{}
	}
	if owner {
		p.Email = user.Email
		p.Phone = user.Phone
		p.LoginPlatform = user.LoginPlatform
	}
	return p, nil
}

func (s *UserService) certificates(ctx context.Context, userID uint) ([]UserCertificateView, error) {
	levels, err := s.store.Users.GetCertificateLevels(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load certificates: %w", err)
	}
	ids := make([]uint, 0, len(levels))
	for _, l := range levels {
		ids = append(ids, l.CertificateID)
	}
	certs, err := s.store.Sports.GetCertificatesByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load certificates: %w", err)
	}

	out := make([]UserCertificateView, 0, len(levels))
	for _, l := range levels {
		out = append(out, UserCertificateView{
			CertificateID:   l.CertificateID,
			CertificateName: certs[l.CertificateID].Name,
			LevelID:         l.ID,
			Level:           l.Level,
		})
	}
	return out, nil
}

func checkImage(img Upload) error {
	if img.Size > MaxImageSize {
		return Invalid("image exceeds %d MB", MaxImageSize>>20)
	}
	if !strings.HasPrefix(img.ContentType, "image/") {
		return Invalid("only image uploads are accepted")
	}
	return nil
}

func unique(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
