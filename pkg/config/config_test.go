package config

import "testing"

func TestLoad_CatalogCeilingDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MaxItemPrice != 999999.99 {
		t.Errorf("unexpected MaxItemPrice default: %v", cfg.MaxItemPrice)
	}
	if cfg.MaxItemStock != 1_000_000 {
		t.Errorf("unexpected MaxItemStock default: %d", cfg.MaxItemStock)
	}
}

func TestLoad_CatalogCeilingsFromEnv(t *testing.T) {
	t.Setenv("MAX_ITEM_PRICE", "500.00")
	t.Setenv("MAX_ITEM_STOCK", "250")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MaxItemPrice != 500.00 {
		t.Errorf("MAX_ITEM_PRICE not honored: %v", cfg.MaxItemPrice)
	}
	if cfg.MaxItemStock != 250 {
		t.Errorf("MAX_ITEM_STOCK not honored: %d", cfg.MaxItemStock)
	}
}
