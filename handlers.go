package main

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"kopkar/models"
	"kopkar/pkg/keanggotaan"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func setupRoutes(r *gin.Engine, svc *keanggotaan.Service) {
	r.POST("/register", registerHandler)
	r.POST("/login", loginHandler)
	r.POST("/refresh", refreshHandler)
	r.POST("/revoke_refresh", revokeRefreshHandler)
	authGroup := r.Group("")
	authGroup.Use(jwtAuthMiddleware())
	authGroup.GET("/me", meHandler)
	authGroup.POST("/anggota", createAnggotaHandler(svc))
	authGroup.GET("/anggota", listAnggotaHandler(svc))
	authGroup.GET("/anggota-keluar", listAnggotaKeluarHandler(svc))
	authGroup.GET("/anggota/:id", getAnggotaHandler(svc))
	authGroup.POST("/anggota/:id/simpanan", setorSimpananHandler(svc))
	authGroup.POST("/anggota/:id/keluar", keluarHandler(svc))
	authGroup.GET("/anggota/:id/pengembalian", hitungPengembalianHandler(svc))
	authGroup.POST("/anggota/:id/pengembalian/validasi", validasiPengembalianHandler(svc))
	authGroup.POST("/anggota/:id/pengembalian", prosesPengembalianHandler(svc))
	authGroup.GET("/anggota/:id/pengembalian/bukti", buktiPengembalianHandler(svc))
	authGroup.GET("/laporan/simpanan", laporanSimpananHandler(svc))
	authGroup.POST("/admin/repair", adminOnly(), repairHandler(svc))
}

func jwtAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || len(authHeader) < 8 || authHeader[:7] != "Bearer " {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid Authorization header"})
			c.Abort()
			return
		}
		tokenString := authHeader[7:]
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrInvalidKeyType
			}
			return jwtSecret, nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid claims"})
			c.Abort()
			return
		}
		username, _ := claims["username"].(string)
		role, _ := claims["role"].(string)
		c.Set("username", username)
		if role != "" {
			c.Set("role", role)
		}
		c.Next()
	}
}

func adminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := c.Get("role")
		if role != "administrator" {
			c.JSON(http.StatusForbidden, gin.H{"error": "administrator role required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func meHandler(c *gin.Context) {
	usernameVal, _ := c.Get("username")
	if usernameVal == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "context missing username"})
		return
	}
	username := usernameVal.(string)
	c.JSON(http.StatusOK, gin.H{"username": username})
}

// actorFrom identifies the authenticated staff member for the audit trail.
func actorFrom(c *gin.Context) string {
	usernameVal, _ := c.Get("username")
	username, _ := usernameVal.(string)
	if username == "" {
		return "petugas:unknown"
	}
	return "petugas:" + username
}

// businessError maps a typed service error to an HTTP status.
func businessError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, keanggotaan.ErrUnknownJenis),
		errors.Is(err, keanggotaan.ErrInvalidDeposit):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, keanggotaan.ErrAnggotaNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, keanggotaan.ErrAlreadyExited),
		errors.Is(err, keanggotaan.ErrAnggotaNotExited),
		errors.Is(err, keanggotaan.ErrReturnNotProcessed),
		errors.Is(err, keanggotaan.ErrPengembalianNotFound),
		errors.Is(err, keanggotaan.ErrConcurrentReturn):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func createAnggotaHandler(svc *keanggotaan.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			NIK  string `json:"nik"`
			Nama string `json:"nama" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		a, err := svc.EnrollAnggota(req.NIK, req.Nama, actorFrom(c))
		if err != nil {
			businessError(c, err)
			return
		}
		c.JSON(http.StatusOK, a)
	}
}

// listAnggotaHandler serves the operational master list: exited members are
// filtered out through the shared visibility predicate.
func listAnggotaHandler(svc *keanggotaan.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		members, err := svc.ListAnggota()
		if err != nil {
			businessError(c, err)
			return
		}
		c.JSON(http.StatusOK, keanggotaan.FilterVisible(members))
	}
}

// listAnggotaKeluarHandler is the dedicated exited-members view.
func listAnggotaKeluarHandler(svc *keanggotaan.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		members, err := svc.ListAnggota()
		if err != nil {
			businessError(c, err)
			return
		}
		keluar := make([]keanggotaan.Anggota, 0)
		for _, a := range members {
			if !keanggotaan.IsOperationallyVisible(a) {
				keluar = append(keluar, a)
			}
		}
		c.JSON(http.StatusOK, keluar)
	}
}

func getAnggotaHandler(svc *keanggotaan.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, err := svc.GetAnggota(c.Param("id"))
		if err != nil {
			businessError(c, err)
			return
		}
		c.JSON(http.StatusOK, a)
	}
}

func setorSimpananHandler(svc *keanggotaan.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Jenis  string `json:"jenis" binding:"required"`
			Jumlah int64  `json:"jumlah" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		sp, err := svc.RecordDeposit(c.Param("id"), keanggotaan.JenisSimpanan(req.Jenis), req.Jumlah, actorFrom(c))
		if err != nil {
			businessError(c, err)
			return
		}
		c.JSON(http.StatusOK, sp)
	}
}

func keluarHandler(svc *keanggotaan.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			ExitDate string `json:"exit_date"` // YYYY-MM-DD, defaults to today
			Reason   string `json:"reason" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		exitDate := time.Now()
		if req.ExitDate != "" {
			t, err := time.Parse("2006-01-02", req.ExitDate)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "exit_date must be YYYY-MM-DD"})
				return
			}
			exitDate = t
		}
		a, err := svc.MarkMemberExited(c.Param("id"), exitDate, req.Reason, actorFrom(c))
		if err != nil {
			businessError(c, err)
			return
		}
		c.JSON(http.StatusOK, a)
	}
}

func hitungPengembalianHandler(svc *keanggotaan.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := svc.GetAnggota(c.Param("id")); err != nil {
			businessError(c, err)
			return
		}
		amount, err := svc.CalculateReturnAmount(c.Param("id"))
		if err != nil {
			businessError(c, err)
			return
		}
		c.JSON(http.StatusOK, amount)
	}
}

func validasiPengembalianHandler(svc *keanggotaan.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Method string `json:"method"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		result, err := svc.ValidateReturn(c.Param("id"), req.Method)
		if err != nil {
			businessError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func prosesPengembalianHandler(svc *keanggotaan.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Method string `json:"method" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		p, err := svc.ProcessReturn(c.Param("id"), req.Method, actorFrom(c))
		if err != nil {
			businessError(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

func buktiPengembalianHandler(svc *keanggotaan.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := svc.GenerateReturnProof(c.Param("id"))
		if err != nil {
			businessError(c, err)
			return
		}
		c.JSON(http.StatusOK, doc)
	}
}

func laporanSimpananHandler(svc *keanggotaan.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := svc.ReportSimpanan()
		if err != nil {
			businessError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func repairHandler(svc *keanggotaan.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var (
			report keanggotaan.RepairReport
			err    error
		)
		if c.Query("dry_run") == "true" {
			report, err = svc.PreviewRepair(actorFrom(c))
		} else {
			report, err = svc.RepairExitedMemberSavings(actorFrom(c))
		}
		if err != nil {
			businessError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func registerHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := RegisterUser(req.Username, req.Password); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user registered successfully"})
}

func loginHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := Authenticate(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	// Generate JWT token. Resolve role name from RoleID (we only store role_id).
	roleName := ""
	if user.RoleID != nil {
		var r models.Role
		if err := db.First(&r, *user.RoleID).Error; err == nil {
			roleName = r.Name
		}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": user.Username,
		"role":     roleName,
		"exp":      time.Now().Add(time.Hour * 24).Unix(),
	})
	tokenString, err := token.SignedString(jwtSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	// create refresh token
	refreshToken, err := createAndStoreRefreshToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "login successful", "token": tokenString, "refresh_token": refreshToken})
}

// createAndStoreRefreshToken generates a random refresh token, stores its hash with expiry and returns the raw token string
func createAndStoreRefreshToken(userID uint) (string, error) {
	// generate random 32-byte token (hex)
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := hex.EncodeToString(b)
	// hash for storage
	h := sha256.Sum256([]byte(token))
	th := hex.EncodeToString(h[:])
	rt := models.RefreshToken{UserID: userID, TokenHash: th, ExpiresAt: time.Now().Add(30 * 24 * time.Hour)}
	if err := db.Create(&rt).Error; err != nil {
		return "", err
	}
	return token, nil
}

// helper to find refresh token record by raw token string
func findRefreshTokenByRaw(token string) (*models.RefreshToken, error) {
	h := sha256.Sum256([]byte(token))
	th := hex.EncodeToString(h[:])
	var rt models.RefreshToken
	if err := db.Where("token_hash = ?", th).First(&rt).Error; err != nil {
		return nil, err
	}
	return &rt, nil
}

// refreshHandler exchanges a refresh token for a new access token and rotates the refresh token
func refreshHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rt, err := findRefreshTokenByRaw(req.RefreshToken)
	if err != nil || rt.Revoked || time.Now().After(rt.ExpiresAt) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired refresh token"})
		return
	}
	// load user
	var user models.User
	if err := db.First(&user, rt.UserID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	// create access token
	roleName := ""
	if user.RoleID != nil {
		var r models.Role
		if err := db.First(&r, *user.RoleID).Error; err == nil {
			roleName = r.Name
		}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": user.Username,
		"role":     roleName,
		"exp":      time.Now().Add(15 * time.Minute).Unix(),
	})
	tokenString, err := token.SignedString(jwtSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	// rotate refresh token: revoke existing and create new one
	db.Model(&models.RefreshToken{}).Where("id = ?", rt.ID).Update("revoked", true)
	newRT, err := createAndStoreRefreshToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to rotate refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tokenString, "refresh_token": newRT})
}

// revokeRefreshHandler revokes a given refresh token (useful on logout)
func revokeRefreshHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rt, err := findRefreshTokenByRaw(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "refresh token not found"})
		return
	}
	rt.Revoked = true
	if err := db.Save(rt).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "refresh token revoked"})
}
