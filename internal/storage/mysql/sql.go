package mysql

// schemaSQL is applied by Repo.Migrate; statements are separated by ";\n".
const schemaSQL = `
CREATE TABLE IF NOT EXISTS hotels (
  hotel_key    VARCHAR(64)  NOT NULL,
  location_id  VARCHAR(32)  NULL,
  name         VARCHAR(512) NOT NULL DEFAULT '',
  lat          DOUBLE       NULL,
  lon          DOUBLE       NULL,
  type         VARCHAR(128) NULL,
  ranking      VARCHAR(255) NULL,
  price_range  VARCHAR(64)  NULL,
  stars        DECIMAL(2,1) NULL,
  description  TEXT         NULL,
  website      VARCHAR(1024) NULL,
  phone        VARCHAR(64)  NULL,
  email        VARCHAR(255) NULL,
  address      VARCHAR(1024) NULL,
  city         VARCHAR(255) NULL,
  state        VARCHAR(255) NULL,
  raw          JSON         NULL,
  created_at   TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at   TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
  PRIMARY KEY (hotel_key),
  KEY idx_hotels_city_state (city, state, hotel_key)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

const upsertHotelSQL = `
INSERT INTO hotels (
  hotel_key, location_id, name, lat, lon, type, ranking, price_range, stars,
  description, website, phone, email, address, city, state, raw
) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
  location_id = VALUES(location_id),
  name        = VALUES(name),
  lat         = VALUES(lat),
  lon         = VALUES(lon),
  type        = VALUES(type),
  ranking     = VALUES(ranking),
  price_range = VALUES(price_range),
  stars       = VALUES(stars),
  description = VALUES(description),
  website     = VALUES(website),
  phone       = VALUES(phone),
  email       = VALUES(email),
  address     = VALUES(address),
  city        = VALUES(city),
  state       = VALUES(state),
  raw         = VALUES(raw)
`

const hotelColumns = `
  hotel_key, location_id, name, lat, lon, type, ranking, price_range, stars,
  description, website, phone, email, address, city, state, raw`

const getHotelSQL = `SELECT` + hotelColumns + `
FROM hotels
WHERE hotel_key = ?
`

// listHotelsSQL pages by key; a NULL filter argument disables that filter.
const listHotelsSQL = `SELECT` + hotelColumns + `
FROM hotels
WHERE (? IS NULL OR city = ?)
  AND (? IS NULL OR state = ?)
  AND hotel_key > ?
ORDER BY hotel_key
LIMIT ?
`
