package cms

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
	"github.com/google/uuid"

	"github.com/mvoicu/catalog-cms/middleware/guard"
)

type UserController struct {
	Debug          bool
	Logger         Logger
	Repo           RepositoryManager
	Auther         *RouteAuthenticator
	SuperuserToken string
}

type UserControllerOption func(*UserController) *UserController

func NewUserController(opts ...UserControllerOption) *UserController {
	c := &UserController{
		Logger: defLogger{},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in user controller...")
	}

	if c.Auther == nil {
		panic("Missing RouteAuthenticator in user controller...")
	}

	return c
}

func RegisterUserRoutes(app fiber.Router, opts ...UserControllerOption) *UserController {
	controller := NewUserController(opts...)

	active := controller.Auther.Protected(guard.PolicyActive)
	superuser := controller.Auther.Protected(guard.PolicySuperuser)

	users := app.Group("/user")
	users.Post("/token", controller.Token).Name("user.token")
	users.Post("/logout", active, controller.Logout).Name("user.logout")
	users.Post("/", controller.Create).Name("user.create")
	users.Post("/superuser", controller.CreateSuperuser).Name("user.superuser")
	users.Get("/", superuser, controller.List).Name("user.list")
	users.Get("/me", active, controller.Me).Name("user.me")
	users.Get("/:id", superuser, controller.Get).Name("user.get")
	users.Put("/:id", active, controller.Update).Name("user.update")
	users.Delete("/:id", active, controller.Delete).Name("user.delete")

	return controller
}

// LoginRequest is the credentials payload. The identifier field is
// named username for OAuth2 password-flow compatibility even though it
// carries the email.
type LoginRequest struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *UserController) Token(c *fiber.Ctx) error {
	payload := new(LoginRequest)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("login parse payload: %s", err)
		return badRequest(c, "Failed to parse credentials")
	}

	if err := payload.Validate(); err != nil {
		return unprocessable(c, err)
	}

	if a.Debug {
		fmt.Println("======= LOGIN ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("====================")
	}

	token, err := a.Auther.Login(c, payload.Username, payload.Password)
	if err != nil {
		return RespondError(c, err)
	}

	return c.JSON(fiber.Map{
		"access_token": token,
		"token_type":   "bearer",
	})
}

func (a *UserController) Logout(c *fiber.Ctx) error {
	a.Auther.Logout(c)
	return c.JSON(fiber.Map{"detail": "Successfully logged out"})
}

type CreateUserRequest struct {
	Name     string `form:"name" json:"name"`
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

func (r CreateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(3, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
	)
}

func (a *UserController) Create(c *fiber.Ctx) error {
	payload := new(CreateUserRequest)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("create user parse payload: %s", err)
		return badRequest(c, "Failed to parse payload")
	}

	if err := payload.Validate(); err != nil {
		return unprocessable(c, err)
	}

	registerUser := NewRegisterUserHandler(a.Repo)
	user, err := registerUser.Execute(c.UserContext(), RegisterUserMessage{
		Name:     payload.Name,
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		a.Logger.Error("create user: %s", err)
		return RespondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(user)
}

// CreateSuperuserRequest gates superuser creation behind a shared
// deployment secret instead of an existing session.
type CreateSuperuserRequest struct {
	CreateUserRequest
	SecretToken string `form:"secret_token" json:"secret_token"`
}

func (r CreateSuperuserRequest) Validate() error {
	if err := r.CreateUserRequest.Validate(); err != nil {
		return err
	}
	return validation.ValidateStruct(&r,
		validation.Field(&r.SecretToken, validation.Required),
	)
}

func (a *UserController) CreateSuperuser(c *fiber.Ctx) error {
	payload := new(CreateSuperuserRequest)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("create superuser parse payload: %s", err)
		return badRequest(c, "Failed to parse payload")
	}

	if err := payload.Validate(); err != nil {
		return unprocessable(c, err)
	}

	if a.SuperuserToken == "" || payload.SecretToken != a.SuperuserToken {
		return RespondError(c, ErrInvalidSecretToken)
	}

	registerUser := NewRegisterUserHandler(a.Repo)
	user, err := registerUser.Execute(c.UserContext(), RegisterUserMessage{
		Name:      payload.Name,
		Email:     payload.Email,
		Password:  payload.Password,
		Superuser: true,
	})
	if err != nil {
		a.Logger.Error("create superuser: %s", err)
		return RespondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(user)
}

func (a *UserController) List(c *fiber.Ctx) error {
	records, err := a.Repo.Users().List(c.UserContext())
	if err != nil {
		a.Logger.Error("list users: %s", err)
		return RespondError(c, err)
	}
	return c.JSON(records)
}

func (a *UserController) Me(c *fiber.Ctx) error {
	return c.JSON(CurrentUser(c))
}

func (a *UserController) Get(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return unprocessable(c, err)
	}

	user, err := a.Repo.Users().Get(c.UserContext(), id)
	if err != nil {
		return RespondError(c, ErrUserNotFound)
	}

	return c.JSON(user)
}

type UpdateUserRequest struct {
	Name        *string `form:"name" json:"name"`
	Email       *string `form:"email" json:"email"`
	Password    *string `form:"password" json:"password"`
	IsActive    *bool   `form:"is_active" json:"is_active"`
	IsSuperuser *bool   `form:"is_superuser" json:"is_superuser"`
}

func (r UpdateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, is.Email),
		validation.Field(&r.Password, validation.Length(8, 100)),
	)
}

func (a *UserController) Update(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return unprocessable(c, err)
	}

	caller := CurrentUser(c)
	if !caller.IsSuperuserAccount() && caller.ID != id {
		return RespondError(c, ErrOwnershipRequired)
	}

	payload := new(UpdateUserRequest)
	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("update user parse payload: %s", err)
		return badRequest(c, "Failed to parse payload")
	}

	if err := payload.Validate(); err != nil {
		return unprocessable(c, err)
	}

	updateUser := NewUpdateUserHandler(a.Repo)
	user, err := updateUser.Execute(c.UserContext(), UpdateUserMessage{
		UserID:      id,
		Name:        payload.Name,
		Email:       payload.Email,
		Password:    payload.Password,
		IsActive:    payload.IsActive,
		IsSuperuser: payload.IsSuperuser,
		AllowFlags:  caller.IsSuperuserAccount(),
	})
	if err != nil {
		a.Logger.Error("update user: %s", err)
		return RespondError(c, err)
	}

	return c.JSON(user)
}

func (a *UserController) Delete(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return unprocessable(c, err)
	}

	caller := CurrentUser(c)
	if !caller.IsSuperuserAccount() && caller.ID != id {
		return RespondError(c, ErrOwnershipRequired)
	}

	if err := a.Repo.Users().DeleteByID(c.UserContext(), id); err != nil {
		return RespondError(c, ErrUserNotFound)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func parseID(c *fiber.Ctx) (uuid.UUID, error) {
	return uuid.Parse(c.Params("id"))
}

func badRequest(c *fiber.Ctx, detail string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"detail": detail})
}

func unprocessable(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"detail": err.Error()})
}
