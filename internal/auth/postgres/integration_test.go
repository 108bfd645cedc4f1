// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/oklog/ulid/v2"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/auth/postgres"
	"github.com/gatehouse/gatehouse/internal/store"
)

func TestAuthRepositories(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Auth Repositories Integration Suite")
}

var (
	pool      *pgxpool.Pool
	container *pgcontainer.PostgresContainer
	userRepo  *postgres.UserRepository
	sessRepo  *postgres.SessionRepository
)

var _ = BeforeSuite(func() {
	ctx := context.Background()

	var err error
	container, err = pgcontainer.Run(ctx,
		"postgres:16-alpine",
		pgcontainer.WithDatabase("gatehouse_test"),
		pgcontainer.WithUsername("gatehouse"),
		pgcontainer.WithPassword("gatehouse"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	Expect(err).NotTo(HaveOccurred())

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	Expect(err).NotTo(HaveOccurred())

	migrator, err := store.NewMigrator(connStr)
	Expect(err).NotTo(HaveOccurred())
	Expect(migrator.Up()).To(Succeed())
	Expect(migrator.Close()).To(Succeed())

	pool, err = store.Connect(ctx, connStr)
	Expect(err).NotTo(HaveOccurred())

	userRepo = postgres.NewUserRepository(pool)
	sessRepo = postgres.NewSessionRepository(pool)
})

var _ = AfterSuite(func() {
	if pool != nil {
		pool.Close()
	}
	if container != nil {
		_ = container.Terminate(context.Background())
	}
})

func newUser(username string) *auth.User {
	user, err := auth.NewUser(username, "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA")
	Expect(err).NotTo(HaveOccurred())
	return user
}

func newSession(user *auth.User) (*auth.Session, string) {
	token, tokenHash, err := auth.GenerateSessionToken()
	Expect(err).NotTo(HaveOccurred())
	session, err := auth.NewSession(user.Ref(), tokenHash, time.Now().Add(time.Hour))
	Expect(err).NotTo(HaveOccurred())
	return session, token
}

var _ = Describe("UserRepository", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
		_, err := pool.Exec(ctx, "TRUNCATE users CASCADE")
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Create", func() {
		It("stores and retrieves a user", func() {
			user := newUser("sue")
			Expect(userRepo.Create(ctx, user)).To(Succeed())

			got, err := userRepo.GetByID(ctx, user.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Username).To(Equal("sue"))
			Expect(got.PasswordHash).To(Equal(user.PasswordHash))
		})

		It("rejects a duplicate username", func() {
			Expect(userRepo.Create(ctx, newUser("sue"))).To(Succeed())

			err := userRepo.Create(ctx, newUser("sue"))
			Expect(err).To(MatchError(auth.ErrUsernameTaken))
		})

		It("rejects a duplicate username in different case", func() {
			Expect(userRepo.Create(ctx, newUser("sue"))).To(Succeed())

			err := userRepo.Create(ctx, newUser("SUE"))
			Expect(err).To(MatchError(auth.ErrUsernameTaken))
		})

		It("resolves concurrent registrations to one winner", func() {
			const attempts = 8
			errs := make(chan error, attempts)
			for i := 0; i < attempts; i++ {
				go func() {
					errs <- userRepo.Create(ctx, newUser("sue"))
				}()
			}

			var won, lost int
			for i := 0; i < attempts; i++ {
				if err := <-errs; err == nil {
					won++
				} else {
					Expect(err).To(MatchError(auth.ErrUsernameTaken))
					lost++
				}
			}
			Expect(won).To(Equal(1))
			Expect(lost).To(Equal(attempts - 1))
		})
	})

	Describe("GetByUsername", func() {
		It("resolves case-insensitively and preserves stored casing", func() {
			user := newUser("Sue")
			Expect(userRepo.Create(ctx, user)).To(Succeed())

			got, err := userRepo.GetByUsername(ctx, "sUE")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(user.ID))
			Expect(got.Username).To(Equal("Sue"))
		})

		It("reports not found for unknown usernames", func() {
			_, err := userRepo.GetByUsername(ctx, "nobody")
			Expect(err).To(MatchError(auth.ErrNotFound))
		})
	})

	Describe("List", func() {
		It("returns users ordered by id", func() {
			alice := newUser("alice")
			bob := newUser("bob")
			Expect(userRepo.Create(ctx, alice)).To(Succeed())
			Expect(userRepo.Create(ctx, bob)).To(Succeed())

			refs, err := userRepo.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(refs).To(HaveLen(2))
			Expect(refs[0].ID.Compare(refs[1].ID)).To(BeNumerically("<", 0))
		})
	})

	Describe("UpdatePassword", func() {
		It("replaces the stored hash", func() {
			user := newUser("sue")
			Expect(userRepo.Create(ctx, user)).To(Succeed())

			Expect(userRepo.UpdatePassword(ctx, user.ID, "$argon2id$v=19$m=65536,t=1,p=4$bmV3c2FsdA$bmV3aGFzaA")).To(Succeed())

			got, err := userRepo.GetByID(ctx, user.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.PasswordHash).NotTo(Equal(user.PasswordHash))
			Expect(got.UpdatedAt).To(BeTemporally(">", got.CreatedAt))
		})

		It("reports not found for unknown users", func() {
			err := userRepo.UpdatePassword(ctx, ulid.Make(), "hash")
			Expect(err).To(MatchError(auth.ErrNotFound))
		})
	})
})

var _ = Describe("SessionRepository", func() {
	var (
		ctx  context.Context
		user *auth.User
	)

	BeforeEach(func() {
		ctx = context.Background()
		_, err := pool.Exec(ctx, "TRUNCATE users CASCADE")
		Expect(err).NotTo(HaveOccurred())

		user = newUser("sue")
		Expect(userRepo.Create(ctx, user)).To(Succeed())
	})

	It("round-trips a session by token hash", func() {
		session, _ := newSession(user)
		Expect(sessRepo.Create(ctx, session)).To(Succeed())

		got, err := sessRepo.GetByTokenHash(ctx, session.TokenHash)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.ID).To(Equal(session.ID))
		Expect(got.UserID).To(Equal(user.ID))
		Expect(got.Username).To(Equal("sue"))
		Expect(got.ExpiresAt).To(BeTemporally("~", session.ExpiresAt, time.Second))
	})

	It("deletes a session exactly once", func() {
		session, _ := newSession(user)
		Expect(sessRepo.Create(ctx, session)).To(Succeed())

		Expect(sessRepo.Delete(ctx, session.ID)).To(Succeed())
		Expect(sessRepo.Delete(ctx, session.ID)).To(MatchError(auth.ErrNotFound))
	})

	It("cascades away when the user is deleted", func() {
		session, _ := newSession(user)
		Expect(sessRepo.Create(ctx, session)).To(Succeed())

		_, err := pool.Exec(ctx, "DELETE FROM users WHERE id = $1", user.ID.String())
		Expect(err).NotTo(HaveOccurred())

		_, err = sessRepo.GetByTokenHash(ctx, session.TokenHash)
		Expect(err).To(MatchError(auth.ErrNotFound))
	})

	It("deletes all sessions for one user", func() {
		s1, _ := newSession(user)
		s2, _ := newSession(user)
		Expect(sessRepo.Create(ctx, s1)).To(Succeed())
		Expect(sessRepo.Create(ctx, s2)).To(Succeed())

		Expect(sessRepo.DeleteByUser(ctx, user.ID)).To(Succeed())

		_, err := sessRepo.GetByTokenHash(ctx, s1.TokenHash)
		Expect(err).To(MatchError(auth.ErrNotFound))
		_, err = sessRepo.GetByTokenHash(ctx, s2.TokenHash)
		Expect(err).To(MatchError(auth.ErrNotFound))
	})

	It("sweeps only expired sessions", func() {
		live, _ := newSession(user)
		Expect(sessRepo.Create(ctx, live)).To(Succeed())

		_, tokenHash, err := auth.GenerateSessionToken()
		Expect(err).NotTo(HaveOccurred())
		expired, err := auth.NewSession(user.Ref(), tokenHash, time.Now().Add(time.Millisecond))
		Expect(err).NotTo(HaveOccurred())
		Expect(sessRepo.Create(ctx, expired)).To(Succeed())

		time.Sleep(10 * time.Millisecond)

		n, err := sessRepo.DeleteExpired(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(int64(1)))

		_, err = sessRepo.GetByTokenHash(ctx, live.TokenHash)
		Expect(err).NotTo(HaveOccurred())
	})

	It("bumps last_seen_at", func() {
		session, _ := newSession(user)
		Expect(sessRepo.Create(ctx, session)).To(Succeed())

		seen := time.Now().Add(time.Minute)
		Expect(sessRepo.UpdateLastSeen(ctx, session.ID, seen)).To(Succeed())

		got, err := sessRepo.GetByTokenHash(ctx, session.TokenHash)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.LastSeenAt).To(BeTemporally("~", seen, time.Second))
	})
})

var _ = Describe("Service on PostgreSQL", func() {
	var (
		ctx context.Context
		svc *auth.Service
	)

	BeforeEach(func() {
		ctx = context.Background()
		_, err := pool.Exec(ctx, "TRUNCATE users CASCADE")
		Expect(err).NotTo(HaveOccurred())

		svc, err = auth.NewService(userRepo, sessRepo, auth.NewArgon2idHasher())
		Expect(err).NotTo(HaveOccurred())
	})

	It("runs the full register, login, logout cycle", func() {
		ref, err := svc.Register(ctx, "sue", "1234")
		Expect(err).NotTo(HaveOccurred())
		Expect(ref.Username).To(Equal("sue"))

		_, err = svc.Register(ctx, "sue", "1234")
		Expect(err).To(MatchError(auth.ErrUsernameTaken))

		session, token, err := svc.Login(ctx, "sue", "1234")
		Expect(err).NotTo(HaveOccurred())
		Expect(session.UserID).To(Equal(ref.ID))

		validated, err := svc.ValidateSession(ctx, token)
		Expect(err).NotTo(HaveOccurred())
		Expect(validated.ID).To(Equal(session.ID))

		Expect(svc.LogoutByToken(ctx, token)).To(Succeed())
		Expect(svc.LogoutByToken(ctx, token)).To(MatchError(auth.ErrNoActiveSession))
	})

	It("rejects bad credentials uniformly", func() {
		_, err := svc.Register(ctx, "sue", "1234")
		Expect(err).NotTo(HaveOccurred())

		_, _, err = svc.Login(ctx, "sue", "wrong")
		Expect(err).To(MatchError(auth.ErrInvalidCredentials))

		_, _, err = svc.Login(ctx, "nobody", "1234")
		Expect(err).To(MatchError(auth.ErrInvalidCredentials))
	})
})
