package cms

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"

	"github.com/mvoicu/catalog-cms/imaging"
	"github.com/mvoicu/catalog-cms/middleware/guard"
)

// ImageProcessor converts one uploaded image into its stored variants
// and reports the shared relative path.
type ImageProcessor interface {
	Process(data []byte) (string, error)
}

type ProductController struct {
	Debug  bool
	Logger Logger
	Repo   RepositoryManager
	Auther *RouteAuthenticator
	Images ImageProcessor
}

type ProductControllerOption func(*ProductController) *ProductController

func NewProductController(opts ...ProductControllerOption) *ProductController {
	c := &ProductController{
		Logger: defLogger{},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in product controller...")
	}

	if c.Auther == nil {
		panic("Missing RouteAuthenticator in product controller...")
	}

	if c.Images == nil {
		panic("Missing ImageProcessor in product controller...")
	}

	return c
}

func RegisterProductRoutes(app fiber.Router, opts ...ProductControllerOption) *ProductController {
	controller := NewProductController(opts...)

	active := controller.Auther.Protected(guard.PolicyActive)
	superuser := controller.Auther.Protected(guard.PolicySuperuser)

	products := app.Group("/products")
	products.Get("/", active, controller.List).Name("products.list")
	products.Get("/:id", active, controller.Get).Name("products.get")
	products.Post("/", superuser, controller.Create).Name("products.create")
	products.Put("/:id", superuser, controller.Update).Name("products.update")
	products.Delete("/:id", superuser, controller.Delete).Name("products.delete")

	return controller
}

// SaveProductPayload is the JSON carried in the multipart data field.
type SaveProductPayload struct {
	Translations []TranslationInput `json:"translations"`
	Features     []FeatureInput     `json:"features"`
}

func (r SaveProductPayload) Validate() error {
	if err := validation.ValidateStruct(&r,
		validation.Field(&r.Translations, validation.Required),
	); err != nil {
		return err
	}

	seen := map[string]bool{}
	for _, t := range r.Translations {
		if err := validation.ValidateStruct(&t,
			validation.Field(&t.Language, validation.Required, validation.Length(2, 10)),
			validation.Field(&t.Title, validation.Required, validation.Length(1, 300)),
		); err != nil {
			return err
		}
		if seen[t.Language] {
			return ErrDuplicateLanguage
		}
		seen[t.Language] = true
	}

	for _, f := range r.Features {
		if err := validation.ValidateStruct(&f,
			validation.Field(&f.Name, validation.Required, validation.Length(1, 200)),
		); err != nil {
			return err
		}
	}

	return nil
}

func (a *ProductController) List(c *fiber.Ctx) error {
	records, err := a.Repo.Products().List(c.UserContext())
	if err != nil {
		a.Logger.Error("list products: %s", err)
		return RespondError(c, err)
	}

	if language := c.Query("language"); language != "" {
		for _, record := range records {
			narrowTranslations(record, language)
		}
	}

	return c.JSON(records)
}

func (a *ProductController) Get(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return unprocessable(c, err)
	}

	record, err := a.Repo.Products().Get(c.UserContext(), id)
	if err != nil {
		return RespondError(c, ErrProductNotFound)
	}

	if language := c.Query("language"); language != "" {
		narrowTranslations(record, language)
	}

	return c.JSON(record)
}

func (a *ProductController) Create(c *fiber.Ctx) error {
	payload, paths, err := a.parseProductForm(c)
	if err != nil {
		return RespondError(c, err)
	}

	saveProduct := NewSaveProductHandler(a.Repo)
	record, err := saveProduct.Create(c.UserContext(), SaveProductMessage{
		Translations: payload.Translations,
		Features:     payload.Features,
		ImagePaths:   paths,
	})
	if err != nil {
		a.Logger.Error("create product: %s", err)
		return RespondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(record)
}

func (a *ProductController) Update(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return unprocessable(c, err)
	}

	payload, paths, err := a.parseProductForm(c)
	if err != nil {
		return RespondError(c, err)
	}

	saveProduct := NewSaveProductHandler(a.Repo)
	record, err := saveProduct.Update(c.UserContext(), SaveProductMessage{
		ProductID:    id,
		Translations: payload.Translations,
		Features:     payload.Features,
		ImagePaths:   paths,
	})
	if err != nil {
		a.Logger.Error("update product: %s", err)
		return RespondError(c, err)
	}

	return c.JSON(record)
}

func (a *ProductController) Delete(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return unprocessable(c, err)
	}

	saveProduct := NewSaveProductHandler(a.Repo)
	if err := saveProduct.Delete(c.UserContext(), id); err != nil {
		return RespondError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// parseProductForm validates the multipart body and runs every upload
// through the image pipeline. The MIME gate rejects the whole request
// before any file is processed or any row written.
func (a *ProductController) parseProductForm(c *fiber.Ctx) (*SaveProductPayload, []string, error) {
	payload := new(SaveProductPayload)

	data := c.FormValue("data")
	if data == "" {
		return nil, nil, goerrors.New("missing data field", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest).
			WithTextCode("MISSING_DATA")
	}

	if err := json.Unmarshal([]byte(data), payload); err != nil {
		return nil, nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "malformed data field").
			WithCode(goerrors.CodeBadRequest).
			WithTextCode("MALFORMED_DATA")
	}

	if err := payload.Validate(); err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, nil, richErr
		}
		return nil, nil, goerrors.Wrap(err, goerrors.CategoryValidation, err.Error())
	}

	if a.Debug {
		fmt.Println("======= PRODUCT ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("======================")
	}

	files := formFiles(c)

	for _, file := range files {
		if err := checkImageType(file); err != nil {
			return nil, nil, err
		}
	}

	var paths []string
	for _, file := range files {
		path, err := a.processUpload(file)
		if err != nil {
			return nil, nil, err
		}
		paths = append(paths, path)
	}

	return payload, paths, nil
}

// formFiles returns the uploaded images. A body without a multipart
// form is fine, updates do not have to carry new images.
func formFiles(c *fiber.Ctx) []*multipart.FileHeader {
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return nil
	}
	return form.File["images"]
}

func checkImageType(file *multipart.FileHeader) error {
	mime := file.Header.Get("Content-Type")
	if imaging.AllowedTypes[mime] {
		return nil
	}

	return goerrors.New(
		fmt.Sprintf("Invalid image format: %s. Allowed formats: JPEG, PNG, WebP", mime),
		goerrors.CategoryBadInput,
	).WithCode(goerrors.CodeBadRequest).WithTextCode("UNSUPPORTED_FORMAT")
}

func (a *ProductController) processUpload(file *multipart.FileHeader) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryBadInput, "could not open upload").
			WithCode(goerrors.CodeBadRequest)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryBadInput, "could not read upload").
			WithCode(goerrors.CodeBadRequest)
	}

	return a.Images.Process(data)
}

func narrowTranslations(record *Product, language string) {
	if t := record.TranslationFor(language); t != nil {
		record.Translations = []*ProductTranslation{t}
	} else {
		record.Translations = []*ProductTranslation{}
	}
}
