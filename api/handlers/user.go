package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/amberops/ambulance-dispatch-api/api"
	"github.com/amberops/ambulance-dispatch-api/config"
	"github.com/amberops/ambulance-dispatch-api/databases"
	"github.com/amberops/ambulance-dispatch-api/models"
)

const resetTokenTTL = time.Hour

// User exported for testing purposes
type User struct {
	DB     databases.UserDatabase
	Config config.Config
}

type registerRequest struct {
	Name           string `json:"name" validate:"required"`
	Role           string `json:"role" validate:"required"`
	Email          string `json:"email" validate:"required,email"`
	Password       string `json:"password" validate:"required,min=8"`
	Phone          string `json:"phone" validate:"required"`
	SecondaryPhone string `json:"secondaryPhone" validate:"omitempty"`
}

// RegisterHandler creates a new user account
func (u User) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		config.ErrorStatus("missing or invalid fields", http.StatusBadRequest, w, err)
		return
	}
	if !models.IsValidRole(req.Role) {
		config.ErrorStatus("invalid role", http.StatusBadRequest, w, fmt.Errorf("role must be one of %v", models.ValidRoles))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if err := u.checkUniqueness(ctx, primitive.NilObjectID, req.Email, req.Phone, req.SecondaryPhone); err != nil {
		config.ErrorStatus("account already exists", http.StatusConflict, w, err)
		return
	}

	hashed, err := hashPassword(req.Password)
	if err != nil {
		config.ErrorStatus("failed to hash password", http.StatusInternalServerError, w, err)
		return
	}

	now := primitive.NewDateTimeFromTime(time.Now())
	user := models.User{
		ID: primitive.NewObjectID(),
		Details: models.UserDetails{
			Name:           req.Name,
			Role:           req.Role,
			Email:          req.Email,
			Password:       hashed,
			Phone:          req.Phone,
			SecondaryPhone: req.SecondaryPhone,
			CreatedAt:      now,
			UpdatedAt:      now,
		},
	}

	if _, err := u.DB.InsertOne(ctx, user); err != nil {
		config.ErrorStatus("failed to create user", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "user registered successfully",
		"user":    user,
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginHandler verifies credentials and issues a session token. Lookup and
// hash failures report the same message so the caller cannot tell which
// field was wrong.
func (u User) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		config.ErrorStatus("missing or invalid fields", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	user, err := u.DB.FindOne(ctx, bson.M{"user.email": req.Email})
	if err != nil || !comparePassword(user.Details.Password, req.Password) {
		config.ErrorStatus("invalid email or password", http.StatusUnauthorized, w, errors.New("credential mismatch"))
		return
	}

	token, err := api.GenerateToken(user.ID, user.Details.Role, u.Config.JWTSecret, u.Config.TokenTTL)
	if err != nil {
		config.ErrorStatus("failed to sign token", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "login successful",
		"token":   token,
		"user":    user,
	})
}

// UsersFindAllHandler returns every account; the password hash never
// serializes
func (u User) UsersFindAllHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	users, err := u.DB.Find(ctx, bson.M{})
	if err != nil {
		config.ErrorStatus("failed to get users", http.StatusInternalServerError, w, err)
		return
	}
	if len(users) == 0 {
		users = []models.User{}
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "users retrieved",
		"users":   users,
	})
}

type userUpdateRequest struct {
	Name           *string `json:"name"`
	Role           *string `json:"role"`
	Email          *string `json:"email"`
	Phone          *string `json:"phone"`
	SecondaryPhone *string `json:"secondaryPhone"`
}

// UpdateMeHandler partially updates the calling user's own account
func (u User) UpdateMeHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := api.PrincipalFromContext(r.Context())
	if !ok {
		config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, errors.New("no principal on request"))
		return
	}
	u.applyUpdate(w, r, principal.ID)
}

// UpdateUserByIDHandler partially updates any account
func (u User) UpdateUserByIDHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	uID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}
	u.applyUpdate(w, r, uID)
}

func (u User) applyUpdate(w http.ResponseWriter, r *http.Request, targetID primitive.ObjectID) {
	var req userUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if req.Role != nil && !models.IsValidRole(*req.Role) {
		config.ErrorStatus("invalid role", http.StatusBadRequest, w, fmt.Errorf("role must be one of %v", models.ValidRoles))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if _, err := u.DB.FindOne(ctx, bson.M{"_id": targetID}); err != nil {
		config.ErrorStatus("failed to get user by ID", http.StatusNotFound, w, err)
		return
	}

	// unique fields are re-checked against every other account before the write
	email, phone, secondary := "", "", ""
	if req.Email != nil {
		email = *req.Email
	}
	if req.Phone != nil {
		phone = *req.Phone
	}
	if req.SecondaryPhone != nil {
		secondary = *req.SecondaryPhone
	}
	if email != "" || phone != "" || secondary != "" {
		if err := u.checkUniqueness(ctx, targetID, email, phone, secondary); err != nil {
			config.ErrorStatus("account already exists", http.StatusConflict, w, err)
			return
		}
	}

	set := bson.M{"user.updatedAt": primitive.NewDateTimeFromTime(time.Now())}
	if req.Name != nil {
		set["user.name"] = *req.Name
	}
	if req.Role != nil {
		set["user.role"] = *req.Role
	}
	if req.Email != nil {
		set["user.email"] = *req.Email
	}
	if req.Phone != nil {
		set["user.phone"] = *req.Phone
	}
	if req.SecondaryPhone != nil {
		set["user.secondaryPhone"] = *req.SecondaryPhone
	}

	if err := u.DB.UpdateOne(ctx, bson.M{"_id": targetID}, bson.M{"$set": set}); err != nil {
		config.ErrorStatus("failed to update user", http.StatusInternalServerError, w, err)
		return
	}

	updated, err := u.DB.FindOne(ctx, bson.M{"_id": targetID})
	if err != nil {
		config.ErrorStatus("failed to get user by ID", http.StatusNotFound, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "user updated successfully",
		"user":    updated,
	})
}

// DeleteUserHandler removes an account. Driver/medic records referencing it
// are left behind; the reconciliation sweep removes them later.
func (u User) DeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	uID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if _, err := u.DB.FindOne(ctx, bson.M{"_id": uID}); err != nil {
		config.ErrorStatus("failed to get user by ID", http.StatusNotFound, w, err)
		return
	}

	if err := u.DB.DeleteOne(ctx, bson.M{"_id": uID}); err != nil {
		config.ErrorStatus("failed to delete user", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "user deleted successfully",
	})
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ForgotPasswordHandler mails a reset link. The response is identical
// whether or not the address matches an account.
func (u User) ForgotPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		config.ErrorStatus("missing or invalid fields", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	user, err := u.DB.FindOne(ctx, bson.M{"user.email": req.Email})
	if err == nil {
		plain := uuid.New().String()
		set := bson.M{
			"user.resetPasswordToken":   hashResetToken(plain),
			"user.resetPasswordExpires": primitive.NewDateTimeFromTime(time.Now().Add(resetTokenTTL)),
		}
		if err := u.DB.UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{"$set": set}); err != nil {
			config.ErrorStatus("failed to store reset token", http.StatusInternalServerError, w, err)
			return
		}
		if err := u.sendResetEmail(user.Details.Email, plain); err != nil {
			zap.S().With("error", err).Error("failed to send reset email")
		}
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "if the email exists, a reset link has been sent",
	})
}

type resetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

// ResetPasswordHandler consumes a reset token and sets a new password
func (u User) ResetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		config.ErrorStatus("missing or invalid fields", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	filter := bson.M{
		"user.resetPasswordToken":   hashResetToken(req.Token),
		"user.resetPasswordExpires": bson.M{"$gt": primitive.NewDateTimeFromTime(time.Now())},
	}
	user, err := u.DB.FindOne(ctx, filter)
	if err != nil {
		config.ErrorStatus("invalid or expired reset token", http.StatusBadRequest, w, errors.New("no matching reset token"))
		return
	}

	hashed, err := hashPassword(req.Password)
	if err != nil {
		config.ErrorStatus("failed to hash password", http.StatusInternalServerError, w, err)
		return
	}

	update := bson.M{
		"$set": bson.M{
			"user.password":  hashed,
			"user.updatedAt": primitive.NewDateTimeFromTime(time.Now()),
		},
		"$unset": bson.M{
			"user.resetPasswordToken":   "",
			"user.resetPasswordExpires": "",
		},
	}
	if err := u.DB.UpdateOne(ctx, bson.M{"_id": user.ID}, update); err != nil {
		config.ErrorStatus("failed to update password", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "password reset successfully",
	})
}

// checkUniqueness fails when the email or either phone number already
// belongs to an account other than excludeID. Empty values are skipped.
func (u User) checkUniqueness(ctx context.Context, excludeID primitive.ObjectID, email, phone, secondaryPhone string) error {
	var or []bson.M
	if email != "" {
		or = append(or, bson.M{"user.email": email})
	}
	phones := []string{}
	if phone != "" {
		phones = append(phones, phone)
	}
	if secondaryPhone != "" {
		phones = append(phones, secondaryPhone)
	}
	if len(phones) > 0 {
		or = append(or, bson.M{"user.phone": bson.M{"$in": phones}})
		or = append(or, bson.M{"user.secondaryPhone": bson.M{"$in": phones}})
	}
	if len(or) == 0 {
		return nil
	}

	filter := bson.M{"$or": or}
	if excludeID != primitive.NilObjectID {
		filter["_id"] = bson.M{"$ne": excludeID}
	}

	count, err := u.DB.CountDocuments(ctx, filter)
	if err != nil {
		return err
	}
	if count > 0 {
		return errors.New("email or phone already in use")
	}
	return nil
}

func hashResetToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

func (u User) sendResetEmail(toEmail, token string) error {
	if u.Config.SendgridAPIKey == "" {
		return errors.New("sendgrid api key is not set")
	}

	resetLink := fmt.Sprintf("%s/reset-password?token=%s", u.Config.BaseURL, token)
	from := mail.NewEmail("Ambulance Dispatch", "no-reply@ambulance-dispatch.app")
	to := mail.NewEmail("", toEmail)
	subject := "Reset your password"
	plain := fmt.Sprintf("Use the link below to reset your password. It expires in one hour.\n\n%s", resetLink)
	message := mail.NewSingleEmail(from, subject, to, plain, "")

	client := sendgrid.NewSendClient(u.Config.SendgridAPIKey)
	resp, err := client.Send(message)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
	}
	return nil
}
