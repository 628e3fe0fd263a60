package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/saclworks/trialflow/internal/middleware"
	"github.com/saclworks/trialflow/internal/qc/entity"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	TestSchema = "test_trialflow"
	JWTSecret  = "trialflow-jwt-secret-key-2026"
)

// projectRoot returns the project root directory by looking for go.mod
func projectRoot() string {
	_, filename, _, _ := runtime.Caller(0)
	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// loadEnv loads .env from the project root
func loadEnv() {
	root := projectRoot()
	if root != "" {
		godotenv.Load(filepath.Join(root, ".env"))
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// SetupTestDB creates a test database connection using a dedicated test schema.
// Each test gets an isolated schema that is cleaned up after the test.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	loadEnv()

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "trialflow")
	password := getEnv("DB_PASSWORD", "trialflow123")
	dbname := getEnv("DB_NAME", "trialflow")

	baseDSN := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	// Create a unique test schema for isolation
	schemaName := fmt.Sprintf("%s_%d", TestSchema, time.Now().UnixNano()%1000000)

	// First: create schema using a temporary connection
	setupDB, err := gorm.Open(postgres.Open(baseDSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to database for schema setup: %v", err)
	}
	setupDB.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schemaName))
	sqlSetup, _ := setupDB.DB()
	sqlSetup.Close()

	// Second: open connection with search_path in DSN so ALL pooled connections use test schema
	testDSN := fmt.Sprintf("%s search_path=%s", baseDSN, schemaName)
	db, err := gorm.Open(postgres.Open(testDSN), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	// Migrate test tables
	err = db.AutoMigrate(
		&entity.Department{},
		&entity.DepartmentFlow{},
		&entity.User{},
		&entity.Trial{},
		&entity.DepartmentProgress{},
		&entity.AuditLog{},
		&entity.SandProperty{},
		&entity.MouldingRecord{},
		&entity.MouldCorrection{},
		&entity.PouringRecord{},
		&entity.VisualInspection{},
		&entity.DimensionalInspection{},
		&entity.MetallurgicalInspection{},
		&entity.MaterialCorrection{},
		&entity.MachineShopRecord{},
		&entity.TrialReport{},
		&entity.TrialDocument{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test tables: %v", err)
	}

	// Cleanup on test completion
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		// Reconnect to drop the schema
		cleanDB, cleanErr := gorm.Open(postgres.Open(baseDSN), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if cleanErr == nil {
			cleanDB.Exec(fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", schemaName))
			sqlClean, _ := cleanDB.DB()
			if sqlClean != nil {
				sqlClean.Close()
			}
		}
	})

	return db
}

// SetupRouter creates a gin test router
func SetupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	return r
}

// AuthGroup creates an API group with JWT auth middleware for testing
func AuthGroup(r *gin.Engine, path string) *gin.RouterGroup {
	return r.Group(path, middleware.JWTAuth(JWTSecret))
}

// GenerateTestToken creates a valid JWT token for testing
func GenerateTestToken(userID, username, name, departmentID, role string) string {
	now := time.Now()
	claims := middleware.JWTClaims{
		UserID:       userID,
		Username:     username,
		Name:         name,
		DepartmentID: departmentID,
		Role:         role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "trialflow",
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(JWTSecret))
	return tokenString
}

// DoRequest executes an HTTP request against the test router
func DoRequest(r *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ParseResponse parses the JSON response body into a map
func ParseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}

// SeedDepartment creates a department with a flow node at the given sequence
func SeedDepartment(t *testing.T, db *gorm.DB, code, name string, sequenceNo int) *entity.Department {
	t.Helper()
	dept := &entity.Department{
		ID:   uuid.New().String()[:32],
		Code: code,
		Name: name,
	}
	if err := db.Create(dept).Error; err != nil {
		t.Fatalf("Failed to seed department: %v", err)
	}
	flow := &entity.DepartmentFlow{
		ID:           uuid.New().String()[:32],
		DepartmentID: dept.ID,
		SequenceNo:   sequenceNo,
	}
	if err := db.Create(flow).Error; err != nil {
		t.Fatalf("Failed to seed department flow: %v", err)
	}
	return dept
}

// SeedUser creates an active user in the given department
func SeedUser(t *testing.T, db *gorm.DB, username, departmentID, role string) *entity.User {
	t.Helper()
	user := &entity.User{
		ID:           uuid.New().String()[:32],
		Username:     username,
		Name:         "Test " + username,
		Email:        username + "@test.local",
		PasswordHash: "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy",
		DepartmentID: departmentID,
		Role:         role,
		IsActive:     true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to seed test user: %v", err)
	}
	return user
}

// SeedTrial creates a trial without progress (progress is created by the engine)
func SeedTrial(t *testing.T, db *gorm.DB, id, partName, createdBy string) *entity.Trial {
	t.Helper()
	trial := &entity.Trial{
		ID:        id,
		TrialNo:   "TN-" + id,
		PartName:  partName,
		Status:    entity.TrialStatusCreated,
		CreatedBy: createdBy,
	}
	if err := db.Create(trial).Error; err != nil {
		t.Fatalf("Failed to seed trial: %v", err)
	}
	return trial
}
