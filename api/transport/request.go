package transport

import (
	"net/mail"
	"regexp"
	"strconv"
	"strings"

	"github.com/valyala/fasthttp"

	"github.com/fastygo/catalog/domain"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 256
	defaultPageSize   = 20
	maxPageSize       = 100
	maxSessionKeys    = 64
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,32}$`)

func invalid(message string) error {
	return domain.NewError(domain.ErrCodeInvalid, message)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateUsername(username string) error {
	if !usernamePattern.MatchString(username) {
		return invalid("username must be 3-32 letters, digits, '_', '.' or '-'")
	}
	return nil
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return invalid("email is not a valid address")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return invalid("password must be between 8 and 256 characters")
	}
	return nil
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *RegisterRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = normalizeEmail(r.Email)
}

func (r *RegisterRequest) Validate() error {
	if err := validateUsername(r.Username); err != nil {
		return err
	}
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	return validatePassword(r.Password)
}

// LoginRequest accepts either a username or an email address.
type LoginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = normalizeEmail(r.Email)
}

func (r *LoginRequest) Validate() error {
	if r.Username == "" && r.Email == "" {
		return invalid("username or email is required")
	}
	if r.Password == "" {
		return invalid("password is required")
	}
	return nil
}

// Login returns the identifier to authenticate with, username first.
func (r *LoginRequest) Login() string {
	if r.Username != "" {
		return r.Username
	}
	return r.Email
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (r *ChangePasswordRequest) Validate() error {
	if r.OldPassword == "" {
		return invalid("old_password is required")
	}
	return validatePassword(r.NewPassword)
}

type ChangeUsernameRequest struct {
	Username string `json:"username"`
}

func (r *ChangeUsernameRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
}

func (r *ChangeUsernameRequest) Validate() error {
	return validateUsername(r.Username)
}

type ChangeEmailRequest struct {
	Email string `json:"email"`
}

func (r *ChangeEmailRequest) Normalize() {
	r.Email = normalizeEmail(r.Email)
}

func (r *ChangeEmailRequest) Validate() error {
	return validateEmail(r.Email)
}

type ChangeRoleRequest struct {
	Role string `json:"role"`
}

func (r *ChangeRoleRequest) Normalize() {
	r.Role = strings.ToLower(strings.TrimSpace(r.Role))
}

func (r *ChangeRoleRequest) Validate() error {
	if !domain.Role(r.Role).Valid() {
		return invalid("role must be admin, editor or client")
	}
	return nil
}

// SessionUpdateRequest carries the keys to write into the current session.
type SessionUpdateRequest struct {
	Values map[string]interface{} `json:"values"`
}

func (r *SessionUpdateRequest) Validate() error {
	if len(r.Values) == 0 {
		return invalid("values must not be empty")
	}
	if len(r.Values) > maxSessionKeys {
		return invalid("too many session keys")
	}
	for key := range r.Values {
		if strings.TrimSpace(key) == "" {
			return invalid("session keys must not be blank")
		}
	}
	return nil
}

type ProductRequest struct {
	SKU         string  `json:"sku"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

func (r *ProductRequest) Normalize() {
	r.SKU = strings.TrimSpace(r.SKU)
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
}

func (r *ProductRequest) Validate() error {
	switch {
	case r.SKU == "" || len(r.SKU) > 64:
		return invalid("sku must be 1-64 characters")
	case r.Name == "" || len(r.Name) > 255:
		return invalid("name must be 1-255 characters")
	case r.Price < 0:
		return invalid("price must not be negative")
	}
	return nil
}

// ToDomain converts the request into a product with the given id.
func (r *ProductRequest) ToDomain(id string) *domain.Product {
	return &domain.Product{
		ID:          id,
		SKU:         r.SKU,
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
	}
}

// ProductListQuery is parsed from the listing query string.
type ProductListQuery struct {
	Page       int
	PageSize   int
	SortBy     domain.ProductSort
	Descending bool
}

// ParseProductListQuery reads page, page_size, sort_by and descending.
func ParseProductListQuery(args *fasthttp.Args) (ProductListQuery, error) {
	q := ProductListQuery{Page: 1, PageSize: defaultPageSize, SortBy: domain.SortByCreatedAt}

	if raw := string(args.Peek("page")); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return q, invalid("page must be a positive integer")
		}
		q.Page = page
	}
	if raw := string(args.Peek("page_size")); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 || size > maxPageSize {
			return q, invalid("page_size must be between 1 and 100")
		}
		q.PageSize = size
	}
	if raw := strings.ToLower(string(args.Peek("sort_by"))); raw != "" {
		q.SortBy = domain.ProductSort(raw)
		if !q.SortBy.Valid() {
			return q, invalid("sort_by must be name, price or created_at")
		}
	}
	if raw := string(args.Peek("descending")); raw != "" {
		desc, err := strconv.ParseBool(raw)
		if err != nil {
			return q, invalid("descending must be a boolean")
		}
		q.Descending = desc
	}
	return q, nil
}

// Offset returns the row offset of the requested page.
func (q ProductListQuery) Offset() int {
	return (q.Page - 1) * q.PageSize
}
