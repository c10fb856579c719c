package crud

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"miniFeed/domain"
	"miniFeed/errs"
)

// uniqueViolation is the SQLSTATE Postgres reports when an insert or update
// collides with a unique index.
const uniqueViolation = "23505"

// UserService manages Users. It implements the domain.UserService interface.
type UserService struct {
	userValidator
}

// userValidator runs validations on incoming User data.
// On success, it passes the data on to userGorm.
// Otherwise, it returns the error of the validation that has failed.
type userValidator struct {
	validate *validator.Validate
	userGorm
}

// userGorm runs CRUD operations on the database using incoming User data.
// It assumes that data has been validated. On success, it returns nil.
// Otherwise, it returns the error of the operation that has failed.
type userGorm struct {
	db *gorm.DB
}

// NewUserService returns an instance of UserService.
func NewUserService(db *gorm.DB) *UserService {
	return &UserService{
		userValidator{
			validate: validator.New(),
			userGorm: userGorm{
				db: db,
			},
		},
	}
}

// Ensure the UserService struct properly implements the domain.UserService interface.
// If it does not, then this expression becomes invalid and won't compile.
var _ domain.UserService = &UserService{}

// Search makes sure there is something to search for before running the fuzzy search.
func (uv *userValidator) Search(ctx context.Context, q string, page domain.Page) ([]domain.User, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, errs.Errorf(errs.EINVALID, "A search query is required.")
	}
	return uv.userGorm.Search(ctx, q, page)
}

// Create runs validations needed for creating new User database records.
// The plain password on user is replaced by its hash.
func (uv *userValidator) Create(ctx context.Context, user *domain.User) error {
	err := runUserValFns(user,
		uv.passwordRequired,
		uv.usernameNormalize,
		uv.usernameValid,
		uv.emailNormalize,
		uv.emailValid,
		uv.emailIsAvail(ctx),
		uv.passwordBcrypt)
	if err != nil {
		return err
	}
	return uv.userGorm.Create(ctx, user)
}

// Update applies the fields set on upd to the user with the given ID, then runs
// the validations needed for updating a User record in the database.
func (uv *userValidator) Update(ctx context.Context, id uuid.UUID, upd domain.UserUpdate) (*domain.User, error) {
	user, err := uv.userGorm.ByID(ctx, id)
	if err != nil {
		return nil, err
	}

	fns := []userValFn{}
	if upd.Username != nil {
		user.Username = *upd.Username
		fns = append(fns, uv.usernameNormalize, uv.usernameValid)
	}
	if upd.Email != nil {
		user.Email = *upd.Email
		fns = append(fns, uv.emailNormalize, uv.emailValid, uv.emailIsAvail(ctx))
	}
	if upd.Password != nil {
		user.Password = *upd.Password
		fns = append(fns, uv.passwordRequired, uv.passwordBcrypt)
	}
	if err := runUserValFns(user, fns...); err != nil {
		return nil, err
	}
	if err := uv.userGorm.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword replaces a user's password after checking the old one against the stored hash.
func (uv *userValidator) ChangePassword(ctx context.Context, id uuid.UUID, upd domain.PasswordUpdate) error {
	user, err := uv.userGorm.ByID(ctx, id)
	if err != nil {
		return err
	}
	err = bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(upd.OldPassword))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return errs.PasswordError
		}
		return errs.Internal(err)
	}

	user.Password = upd.NewPassword
	if err := runUserValFns(user, uv.passwordRequired, uv.passwordBcrypt); err != nil {
		return err
	}
	return uv.userGorm.UpdatePassword(ctx, user.ID, user.Password)
}

// runUserValFns runs any number of functions of type userValFn on the passed in User object.
// If none of them returns an error, it returns nil. Otherwise, it returns the respective error.
func runUserValFns(user *domain.User, fns ...userValFn) error {
	for _, fn := range fns {
		if err := fn(user); err != nil {
			return err
		}
	}
	return nil
}

// A userValFn is any function that takes in a pointer to a domain.User object and returns an error.
type userValFn func(user *domain.User) error

// usernameNormalize trims the username's whitespaces.
func (uv *userValidator) usernameNormalize(user *domain.User) error {
	user.Username = strings.TrimSpace(user.Username)
	return nil
}

// usernameValid makes sure the username is present and fits its column.
func (uv *userValidator) usernameValid(user *domain.User) error {
	if err := uv.validate.Var(user.Username, "required,max=50"); err != nil {
		return errs.Errorf(errs.EINVALID, "A username of at most 50 characters is required.")
	}
	return nil
}

// emailNormalize converts the email to all lowercase and trims its whitespaces.
func (uv *userValidator) emailNormalize(user *domain.User) error {
	user.Email = strings.ToLower(user.Email)
	user.Email = strings.TrimSpace(user.Email)
	return nil
}

// emailValid makes sure the email is present, well-formed and fits its column.
func (uv *userValidator) emailValid(user *domain.User) error {
	if user.Email == "" {
		return errs.Errorf(errs.EINVALID, "An email address is required.")
	}
	if err := uv.validate.Var(user.Email, "email,max=50"); err != nil {
		return errs.Errorf(errs.EINVALID, "The email address is invalid.")
	}
	return nil
}

// emailIsAvail makes sure that a provided email address is not yet taken by another user.
func (uv *userValidator) emailIsAvail(ctx context.Context) userValFn {
	return func(user *domain.User) error {
		existing, err := uv.userGorm.byEmail(ctx, user.Email)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Address is not taken.
			return nil
		}
		if err != nil {
			return errs.Internal(err)
		}
		if user.ID != existing.ID {
			return errs.UserExists
		}
		return nil
	}
}

// passwordRequired makes sure that the user's password is not the empty string.
func (uv *userValidator) passwordRequired(user *domain.User) error {
	if user.Password == "" {
		return errs.PasswordError
	}
	return nil
}

// passwordBcrypt replaces the plain password on user by its bcrypt hash.
func (uv *userValidator) passwordBcrypt(user *domain.User) error {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return errs.PasswordError
		}
		return errs.Internal(err)
	}
	user.Password = string(hashedBytes)
	return nil
}

// Users retrieves a page of users.
func (ug *userGorm) Users(ctx context.Context, page domain.Page) ([]domain.User, error) {
	q, err := userListQuery(ug.db.WithContext(ctx), page)
	if err != nil {
		return nil, err
	}
	return findUsers(q)
}

// Search retrieves a page of users whose username is similar to q, best matches first.
func (ug *userGorm) Search(ctx context.Context, q string, page domain.Page) ([]domain.User, error) {
	query, err := userSearchQuery(ug.db.WithContext(ctx), q, page)
	if err != nil {
		return nil, err
	}
	return findUsers(query)
}

func findUsers(q *gorm.DB) ([]domain.User, error) {
	var users []domain.User
	if err := q.Find(&users).Error; err != nil {
		return nil, errs.Internal(err)
	}
	if len(users) == 0 {
		return nil, errs.UsersNotFound
	}
	return users, nil
}

// ByID retrieves a User database record by ID.
func (ug *userGorm) ByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return ug.first(ug.db.WithContext(ctx).Where("id = ?", id))
}

// ByUsername retrieves a User database record by username.
func (ug *userGorm) ByUsername(ctx context.Context, username string) (*domain.User, error) {
	return ug.first(ug.db.WithContext(ctx).Where("username = ?", username))
}

// first is a helper for getting the first user that matches a given query.
func (ug *userGorm) first(db *gorm.DB) (*domain.User, error) {
	var user domain.User
	err := db.First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.UserNotFound
		}
		return nil, errs.Internal(err)
	}
	return &user, nil
}

// byEmail retrieves a User database record by email. Unlike the exported lookups,
// it returns gorm.ErrRecordNotFound as is.
func (ug *userGorm) byEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := ug.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	return &user, err
}

// LikedPosts retrieves the posts a user has liked, most recently liked first.
func (ug *userGorm) LikedPosts(ctx context.Context, id uuid.UUID) ([]domain.Post, error) {
	if _, err := ug.ByID(ctx, id); err != nil {
		return nil, err
	}
	db := ug.db.WithContext(ctx)
	posts := []domain.Post{}
	err := db.Model(&domain.Post{}).
		Joins("JOIN likes ON likes.post_id = posts.id").
		Where("likes.user_id = ?", id).
		Order("likes.liked_at DESC").
		Find(&posts).Error
	if err != nil {
		return nil, errs.Internal(err)
	}
	if err := enrichPosts(db, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// Create stores the data from the User object in a new database record.
func (ug *userGorm) Create(ctx context.Context, user *domain.User) error {
	err := ug.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(user).Error
	})
	return userWriteError(err)
}

// Update saves changes to an existing user record in the database.
func (ug *userGorm) Update(ctx context.Context, user *domain.User) error {
	err := ug.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(user).Select("*").Updates(user)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errs.UserNotFound
		}
		return nil
	})
	return userWriteError(err)
}

// UpdatePassword stores a new password hash for the user with the given ID.
func (ug *userGorm) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	err := ug.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Model(&domain.User{ID: id}).Update("password", hash).Error
	})
	return errs.Internal(err)
}

// Delete removes a user. Their posts and likes go with them.
func (ug *userGorm) Delete(ctx context.Context, id uuid.UUID) error {
	err := ug.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&domain.User{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errs.UserNotFound
		}
		return nil
	})
	return errs.Internal(err)
}

// userWriteError maps a failed user write onto the error reported to the client.
// A unique violation means someone else registered the email in the meantime.
func userWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return errs.UserExists
	}
	return errs.Internal(err)
}
