package mocks

//go:generate mockery --name CountReader --srcpkg github.com/JFreegman/toxstats/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
